//go:build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

const shaderDir = "engine/shapes/shaders"

// Validates the embedded GLSL stages with glslangValidator.
func (Build) Shaders() error {
	return validateShaders()
}

// Tidies the module and compiles the prism binary into bin/.
func (Build) Engine() error {
	mg.Deps(Build.Shaders)
	if err := goTidy(); err != nil {
		return err
	}
	fmt.Println("Building prism...")
	_, err := executeCmd("go", withArgs("build", "-o", filepath.Join("bin", "prism"), "."), withStream())
	return err
}

func validateShaders() error {
	stages, err := filepath.Glob(filepath.Join(shaderDir, "*.*"))
	if err != nil {
		return err
	}
	for _, s := range stages {
		if _, err := executeCmd("glslangValidator", withArgs(s)); err != nil {
			return err
		}
	}
	return nil
}
