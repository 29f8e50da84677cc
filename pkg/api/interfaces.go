// Package api provides interfaces for dependency injection
package api

import (
	"context"

	"github.com/segmentio/ksuid"

	"github.com/ssargent/framerec/pkg/archive"
	"github.com/ssargent/framerec/pkg/recording"
)

// RecordingArchive is the storage the API serves
type RecordingArchive interface {
	Put(name string, raw []byte) (*archive.Entry, error)
	Stat(id ksuid.KSUID) (*archive.Entry, error)
	Get(id ksuid.KSUID) ([]byte, error)
	Load(id ksuid.KSUID) (*recording.Recording, error)
	Delete(id ksuid.KSUID) error
	List() ([]*archive.Entry, error)
}

// ServerStarter defines the interface for starting the API server
type ServerStarter interface {
	// StartServer serves the archive until ctx is done
	StartServer(ctx context.Context, archive RecordingArchive, config ServerConfig) error
}

// ServerFactory creates server instances
type ServerFactory interface {
	// CreateServerStarter creates a server starter
	CreateServerStarter() ServerStarter
}
