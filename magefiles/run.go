//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Runs the testbed scene in a window.
func (Run) Demo() error {
	if err := validateShaders(); err != nil {
		return err
	}
	fmt.Println("Run demo...")
	_, err := executeCmd("go", withArgs("run", "."), withStream())
	return err
}

// Renders a few frames with the software backend, no window needed.
func (Run) Headless() error {
	fmt.Println("Run headless...")
	_, err := executeCmd("go", withArgs("run", "."), withEnv("PRISM_CONFIG=prism.headless.toml"), withStream())
	return err
}
