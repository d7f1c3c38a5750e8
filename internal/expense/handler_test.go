package expense

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/expensio/expense-service/internal/storage"
)

// mockUploadStore names stored files deterministically so tests can
// assert on the resulting paths.
type mockUploadStore struct {
	released []string
	failAt   int // 1-based Store call that fails, 0 never fails
	calls    int
}

func (m *mockUploadStore) Store(ownerID int64, name, mimeType string, content io.Reader) (storage.StoredFile, error) {
	m.calls++
	if m.failAt > 0 && m.calls >= m.failAt {
		return storage.StoredFile{}, errors.New("disk full")
	}
	size, err := io.Copy(io.Discard, content)
	if err != nil {
		return storage.StoredFile{}, err
	}
	return storage.StoredFile{
		Path:         fmt.Sprintf("uploads/%d/%d-stored%s", ownerID, m.calls, filepath.Ext(name)),
		OriginalName: name,
		MimeType:     mimeType,
		Size:         size,
	}, nil
}

func (m *mockUploadStore) Release(path string) (bool, error) {
	m.released = append(m.released, path)
	return true, nil
}

func uploadParts(names ...string) []*multipart.FileHeader {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, name := range names {
		part, err := w.CreateFormFile("receipts", name)
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write([]byte("file content for " + name))
		Expect(err).NotTo(HaveOccurred())
	}
	Expect(w.Close()).To(Succeed())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(maxUploadSize)
	Expect(err).NotTo(HaveOccurred())
	return form.File["receipts"]
}

var _ = Describe("Handler receipt uploads", func() {
	var (
		store   *mockUploadStore
		handler *Handler
	)

	BeforeEach(func() {
		store = &mockUploadStore{}
		handler = NewHandler(nil, store)
	})

	It("records the bare filename next to the full store path", func() {
		receipts, err := handler.storeReceipts(7, uploadParts("taxi.pdf"))
		Expect(err).NotTo(HaveOccurred())

		Expect(receipts).To(HaveLen(1))
		Expect(receipts[0].Path).To(Equal("uploads/7/1-stored.pdf"))
		Expect(receipts[0].Filename).To(Equal("1-stored.pdf"))
		Expect(receipts[0].OriginalName).To(Equal("taxi.pdf"))
		Expect(receipts[0].Size).To(Equal(int64(len("file content for taxi.pdf"))))
	})

	It("releases already-stored parts when a later one fails", func() {
		store.failAt = 2

		_, err := handler.storeReceipts(7, uploadParts("a.png", "b.png"))
		Expect(err).To(HaveOccurred())
		Expect(store.released).To(ConsistOf("uploads/7/1-stored.png"))
	})
})
