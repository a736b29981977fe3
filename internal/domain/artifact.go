package domain

import (
	"net/url"
	"os"
)

// Artifact is a file produced by a job and awaiting exactly one delivery
type Artifact struct {
	Name string `json:"name"`
	Path string `json:"-"`
	Size int64  `json:"size"`
}

// FileURL returns the delivery endpoint path for the artifact
func (a *Artifact) FileURL() string {
	return "/get_file/" + url.PathEscape(a.Name)
}

// ArtifactStore owns the scratch directory where artifacts wait for delivery
type ArtifactStore interface {
	// Reserve exclusively creates a file in the store root, suffixing the name on collision
	Reserve(name string) (*os.File, error)

	// ReserveDir creates a unique directory in the store root
	ReserveDir(name string) (string, error)

	// ReserveIn exclusively creates a file inside a reserved directory
	ReserveIn(dir, name string) (*os.File, error)

	// Package zips a reserved directory into a root artifact and removes the directory
	Package(dir string) (*Artifact, error)

	// Stat describes a written file as an artifact
	Stat(path string) (*Artifact, error)

	// Discard removes a partially written file or an abandoned reserved directory
	Discard(path string)

	Exists(name string) bool
	Delete(name string) error

	// Claim moves an artifact out of reach of other deliveries
	Claim(name string) (*Artifact, error)

	// Release deletes a claimed artifact
	Release(artifact *Artifact)
}
