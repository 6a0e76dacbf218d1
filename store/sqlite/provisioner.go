package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/warp/hrms/auth"
	"github.com/warp/hrms/tenant"
)

// Provisioner opens one SQLite file per tenant under a data directory. A
// data directory of ":memory:" gives every tenant its own in-memory
// database, which is what tests use.
type Provisioner struct {
	dataDir string
}

var _ tenant.Provisioner = (*Provisioner)(nil)

func NewProvisioner(dataDir string) *Provisioner {
	return &Provisioner{dataDir: dataDir}
}

// Open creates <dataDir>/tenant_<slug>.db if needed and migrates it.
func (p *Provisioner) Open(_ context.Context, slug string) (tenant.Storage, error) {
	if !auth.ValidSlug(slug) {
		return nil, fmt.Errorf("invalid tenant slug %q", slug)
	}
	if p.dataDir == memoryPath {
		return NewTenant(memoryPath)
	}
	if err := os.MkdirAll(p.dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return NewTenant(p.Path(slug))
}

// Path is the database file for slug.
func (p *Provisioner) Path(slug string) string {
	return filepath.Join(p.dataDir, "tenant_"+slug+".db")
}
