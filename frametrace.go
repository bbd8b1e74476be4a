package main

import (
	"os"

	"github.com/yuuki0xff/frametrace/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
