// main generates a small FAT32 example image to play with cmd/vfat.
package main

import (
	"fmt"
	"os"

	"github.com/max-b/vfat/fatimg"
)

func main() {
	out := "example.img"
	if len(os.Args) > 1 {
		out = os.Args[1]
	}

	image, err := fatimg.Build(fatimg.Dir{
		Files: []fatimg.File{
			{Name: "README.TXT", Content: []byte("An example FAT32 volume.\n")},
			{Name: "HelloWorldThisIsALoongFileName.txt", Content: []byte("Hello World!\n")},
		},
		Dirs: []fatimg.Dir{
			{
				Name: "nested",
				Files: []fatimg.File{
					{Name: "inner.txt", Content: []byte("nested file content\n")},
				},
			},
		},
	}, fatimg.Options{Label: "EXAMPLE"})
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	if err := os.WriteFile(out, image, 0644); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	fmt.Printf("wrote %v (%v bytes)\n", out, len(image))
}
