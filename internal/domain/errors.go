package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrLoad marks an artifact that could not be read, parsed, or validated.
	ErrLoad = errors.New("artifact load failed")

	// ErrCorruptArtifact marks tree or kernel data that is inconsistent, such as
	// a child index outside the node arrays.
	ErrCorruptArtifact = errors.New("corrupt artifact")

	// ErrShapeMismatch marks a feature vector of the wrong length.
	ErrShapeMismatch = errors.New("feature shape mismatch")
)

func shapeError(got, want int) error {
	return fmt.Errorf("%w: got %d values, want %d", ErrShapeMismatch, got, want)
}
