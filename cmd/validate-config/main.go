package main

import (
	"fmt"
	"os"

	"github.com/support1122/flashfire-dashboard/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("No files to check.")
		os.Exit(0)
	}

	failed := false
	for _, path := range os.Args[1:] {
		f, err := config.LoadFile(path)
		if err != nil {
			fmt.Printf("❌ %s: %v\n", path, err)
			failed = true
			continue
		}

		cfg, err := config.Load()
		if err != nil {
			fmt.Printf("❌ Environment invalid: %v\n", err)
			os.Exit(1)
		}
		cfg.Apply(f)
		if err := cfg.Validate(); err != nil {
			fmt.Printf("❌ Invalid config in %s: %v\n", path, err)
			failed = true
			continue
		}
		fmt.Printf("✅ %s is valid\n", path)
	}

	if failed {
		os.Exit(1)
	}
}
