package tenant

import (
	"context"

	"github.com/example/commerce-backoffice/internal/infrastructure/store"
	"github.com/example/commerce-backoffice/internal/stock"
)

// EntryEnvelope is the wire format for published ledger entries. The tenant
// travels with the entry so downstream consumers can scope their caches.
type EntryEnvelope struct {
	TenantID string      `json:"tenant_id"`
	Entry    store.Entry `json:"entry"`
}

// scopedPublisher wraps a shared publisher with a tenant identity. Message
// keys stay tenant-qualified so per-pair ordering holds across tenants.
type scopedPublisher struct {
	tenantID string
	inner    stock.Publisher
}

func (p *scopedPublisher) Publish(ctx context.Context, key string, payload any) error {
	entry, ok := payload.(*store.Entry)
	if !ok {
		return nil
	}
	return p.inner.Publish(ctx, p.tenantID+"#"+key, EntryEnvelope{
		TenantID: p.tenantID,
		Entry:    *entry,
	})
}
