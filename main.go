package main

import "github.com/expensio/expense-service/cmd"

func main() {
	cmd.Execute()
}
