package checks

import (
	"context"
	"crypto/x509"
	"net/http"
	"time"

	"smoketest/pkg/utils"
)

// ProcessLauncher starts an executable without a shell or visible window,
// waits for it and returns its exit code. An error means the process could not
// be started or waited for; a non-zero exit is not an error.
type ProcessLauncher interface {
	Launch(ctx context.Context, executable string, args []string) (int, error)
}

// ProcessLister enumerates the names of running processes.
type ProcessLister interface {
	ProcessNames(ctx context.Context) ([]string, error)
}

// CertificateStore returns the certificates held in a named store at a
// location. A store that does not exist yields an error wrapping
// fs.ErrNotExist.
type CertificateStore interface {
	Certificates(location, store string) ([]*x509.Certificate, error)
}

// Environment holds the collaborators shared by all checks of a run. Any nil
// collaborator is replaced by the default implementation on first use, and
// the replacement is kept so every check sees the same instance.
type Environment struct {
	HTTPClient   *http.Client
	HTTPTimeout  time.Duration
	Launcher     ProcessLauncher
	Lister       ProcessLister
	Certificates CertificateStore
	// CertificateRoot is the directory the default certificate store reads.
	CertificateRoot string
}

// NewEnvironment returns an environment with default collaborators.
func NewEnvironment() *Environment {
	return &Environment{}
}

func (e *Environment) httpClient() *http.Client {
	if e == nil {
		return utils.NewHTTPClient(0)
	}
	if e.HTTPClient == nil {
		e.HTTPClient = utils.NewHTTPClient(e.HTTPTimeout)
	}
	return e.HTTPClient
}

func (e *Environment) launcher() ProcessLauncher {
	if e == nil {
		return ExecLauncher{}
	}
	if e.Launcher == nil {
		e.Launcher = ExecLauncher{}
	}
	return e.Launcher
}

func (e *Environment) lister() ProcessLister {
	if e == nil {
		return SystemProcessLister{}
	}
	if e.Lister == nil {
		e.Lister = SystemProcessLister{}
	}
	return e.Lister
}

func (e *Environment) certificates() CertificateStore {
	if e == nil {
		return DirectoryStore{Root: DefaultCertificateRoot}
	}
	if e.Certificates == nil {
		root := e.CertificateRoot
		if root == "" {
			root = DefaultCertificateRoot
		}
		e.Certificates = DirectoryStore{Root: root}
	}
	return e.Certificates
}
