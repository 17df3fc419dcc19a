package certs

import (
	"context"
	"fmt"
	"sync"

	"github.com/s0up4200/dnscerts/dnsimple"
)

// mockAPI is an in-memory CertificateAPI
type mockAPI struct {
	mu sync.Mutex

	certs   []dnsimple.Certificate
	bundles map[int64]dnsimple.CertificateBundle
	keys    map[int64]string
	listErr error
	// failRenew lists certificate IDs whose renewal purchase fails
	failRenew map[int64]error

	nextID     int64
	renewed    []int64
	issued     []int64
	purchases  []dnsimple.LetsencryptCertificateAttributes
	accountIDs []string
}

func newMockAPI(certs ...dnsimple.Certificate) *mockAPI {
	return &mockAPI{
		certs:     certs,
		bundles:   make(map[int64]dnsimple.CertificateBundle),
		keys:      make(map[int64]string),
		failRenew: make(map[int64]error),
		nextID:    900000,
	}
}

func (m *mockAPI) record(accountID string) {
	m.accountIDs = append(m.accountIDs, accountID)
}

func (m *mockAPI) find(id int64) (dnsimple.Certificate, error) {
	for _, c := range m.certs {
		if c.ID == id {
			return c, nil
		}
	}
	return dnsimple.Certificate{}, &dnsimple.APIError{StatusCode: 404, Message: fmt.Sprintf("Certificate `%d` not found", id)}
}

func (m *mockAPI) AllCertificates(_ context.Context, accountID, _ string, _ *dnsimple.ListOptions) ([]dnsimple.Certificate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(accountID)

	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]dnsimple.Certificate(nil), m.certs...), nil
}

func (m *mockAPI) GetCertificate(_ context.Context, accountID, _ string, id int64) (*dnsimple.CertificateResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(accountID)

	cert, err := m.find(id)
	if err != nil {
		return nil, err
	}
	return &dnsimple.CertificateResponse{Data: cert}, nil
}

func (m *mockAPI) DownloadCertificate(_ context.Context, accountID, _ string, id int64) (*dnsimple.CertificateBundleResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(accountID)

	bundle, ok := m.bundles[id]
	if !ok {
		return nil, &dnsimple.APIError{StatusCode: 404, Message: "Not found"}
	}
	return &dnsimple.CertificateBundleResponse{Data: bundle}, nil
}

func (m *mockAPI) GetCertificatePrivateKey(_ context.Context, accountID, _ string, id int64) (*dnsimple.CertificatePrivateKeyResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(accountID)

	key, ok := m.keys[id]
	if !ok {
		return nil, &dnsimple.APIError{StatusCode: 404, Message: "Not found"}
	}
	return &dnsimple.CertificatePrivateKeyResponse{Data: dnsimple.CertificatePrivateKey{PrivateKey: key}}, nil
}

func (m *mockAPI) PurchaseLetsencryptCertificate(_ context.Context, accountID, _ string, attrs dnsimple.LetsencryptCertificateAttributes) (*dnsimple.CertificatePurchaseResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(accountID)

	m.nextID++
	m.purchases = append(m.purchases, attrs)
	return &dnsimple.CertificatePurchaseResponse{Data: dnsimple.CertificatePurchase{
		ID:            m.nextID,
		CertificateID: m.nextID,
		State:         "new",
		AutoRenew:     attrs.AutoRenew,
	}}, nil
}

func (m *mockAPI) IssueLetsencryptCertificate(_ context.Context, accountID, _ string, id int64) (*dnsimple.CertificateResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(accountID)

	m.issued = append(m.issued, id)
	return &dnsimple.CertificateResponse{Data: dnsimple.Certificate{ID: id, State: dnsimple.CertificateStateRequesting}}, nil
}

func (m *mockAPI) PurchaseLetsencryptCertificateRenewal(_ context.Context, accountID, _ string, id int64, attrs dnsimple.LetsencryptRenewalAttributes) (*dnsimple.CertificateRenewalResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(accountID)

	if err, ok := m.failRenew[id]; ok {
		return nil, err
	}

	m.nextID++
	m.renewed = append(m.renewed, id)
	return &dnsimple.CertificateRenewalResponse{Data: dnsimple.CertificateRenewal{
		ID:               m.nextID,
		OldCertificateID: id,
		NewCertificateID: id + 1000,
		State:            "new",
		AutoRenew:        attrs.AutoRenew,
	}}, nil
}

func (m *mockAPI) IssueLetsencryptCertificateRenewal(_ context.Context, accountID, _ string, id, renewalID int64) (*dnsimple.CertificateResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(accountID)

	m.issued = append(m.issued, renewalID)
	return &dnsimple.CertificateResponse{Data: dnsimple.Certificate{ID: id + 1000, State: dnsimple.CertificateStateRequesting}}, nil
}
