package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jpsistemas/jp-cobrancas/internal/cache"
	"github.com/jpsistemas/jp-cobrancas/internal/config"
	"github.com/jpsistemas/jp-cobrancas/internal/domain"
	customError "github.com/jpsistemas/jp-cobrancas/pkg/errors"
)

type ClientService struct {
	base
}

func NewClientService(stores StoreResolver, c cache.Cache, cfg *config.Config, log logrus.FieldLogger) *ClientService {
	return &ClientService{base: newBase(stores, c, cfg, log)}
}

// Create registers a client, rejecting placeholder names
func (s *ClientService) Create(ctx context.Context, req *domain.CreateClientRequest) (*domain.Client, error) {
	if !domain.ValidClientName(req.Name) {
		return nil, customError.WrapInvalidClientName()
	}

	store, err := s.store(ctx)
	if err != nil {
		return nil, err
	}

	client := &domain.Client{
		Name:    strings.TrimSpace(req.Name),
		TaxID:   req.TaxID,
		Phone:   req.Phone,
		Email:   req.Email,
		Address: req.Address,
		City:    req.City,
		State:   req.State,
		ZipCode: req.ZipCode,
		Status:  req.Status,
		Notes:   req.Notes,
	}
	if client.Status == "" {
		client.Status = domain.ClientStatusActive
	}

	if err := store.Clients.Create(ctx, client); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	s.invalidateDashboard(ctx)
	return client, nil
}

func (s *ClientService) List(ctx context.Context, filter domain.ClientFilter) ([]*domain.Client, error) {
	store, err := s.store(ctx)
	if err != nil {
		return nil, err
	}

	clients, err := store.Clients.List(ctx, filter)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return clients, nil
}

func (s *ClientService) Get(ctx context.Context, id int64) (*domain.Client, error) {
	store, err := s.store(ctx)
	if err != nil {
		return nil, err
	}

	client, err := store.Clients.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, customError.WrapClientNotFound(id))
	}
	return client, nil
}

// Update applies the fields present in req
func (s *ClientService) Update(ctx context.Context, id int64, req *domain.UpdateClientRequest) (*domain.Client, error) {
	if req.Name != nil && !domain.ValidClientName(*req.Name) {
		return nil, customError.WrapInvalidClientName()
	}

	store, err := s.store(ctx)
	if err != nil {
		return nil, err
	}

	client, err := store.Clients.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, customError.WrapClientNotFound(id))
	}

	if req.Name != nil {
		client.Name = strings.TrimSpace(*req.Name)
	}
	setString(&client.TaxID, req.TaxID)
	setString(&client.Phone, req.Phone)
	setString(&client.Email, req.Email)
	setString(&client.Address, req.Address)
	setString(&client.City, req.City)
	setString(&client.State, req.State)
	setString(&client.ZipCode, req.ZipCode)
	setString(&client.Status, req.Status)
	setString(&client.Notes, req.Notes)

	if err := store.Clients.Update(ctx, client); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	s.invalidateDashboard(ctx)
	return client, nil
}

// Delete removes a client. Clients with unsettled loans are kept; settled
// loans survive the deletion without an owner.
func (s *ClientService) Delete(ctx context.Context, id int64) error {
	store, err := s.store(ctx)
	if err != nil {
		return err
	}

	if _, err := store.Clients.GetByID(ctx, id); err != nil {
		return lookupError(err, customError.WrapClientNotFound(id))
	}

	open, err := store.Loans.CountUnsettledByClient(ctx, id)
	if err != nil {
		return customError.WrapDatabaseError(err)
	}
	if open > 0 {
		return customError.WrapClientHasLoans(id, open)
	}

	if err := store.Clients.Delete(ctx, id); err != nil {
		return customError.WrapDatabaseError(err)
	}

	s.invalidateDashboard(ctx)
	return nil
}

// SetBlacklist moves a client onto or off the blacklist
func (s *ClientService) SetBlacklist(ctx context.Context, id int64, req *domain.BlacklistRequest) (*domain.Client, error) {
	store, err := s.store(ctx)
	if err != nil {
		return nil, err
	}

	client, err := store.Clients.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, customError.WrapClientNotFound(id))
	}

	client.Status = req.Status
	client.BlacklistReason = ""
	if req.Status == domain.ClientStatusBlacklist {
		client.BlacklistReason = strings.TrimSpace(req.Reason)
	}

	if err := store.Clients.Update(ctx, client); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	s.log.WithFields(logrus.Fields{"client_id": id, "status": client.Status}).Info("Client blacklist status changed")
	s.invalidateDashboard(ctx)
	return client, nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
