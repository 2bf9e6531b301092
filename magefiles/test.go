//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// Runs every package test with the race detector.
func (Test) All() error {
	_, err := executeCmd("go", withArgs("test", "-race", "./..."), withStream())
	return err
}

// Runs the tests that need no window or GPU.
func (Test) Headless() error {
	_, err := executeCmd("go", withArgs("test", "./engine/core/...", "./engine/config/...", "./engine/renderer/software/...", "./engine/scene/...", "./engine/shapes/..."), withStream())
	return err
}
