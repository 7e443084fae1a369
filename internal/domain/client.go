package domain

import (
	"strings"
	"time"
)

const (
	ClientStatusActive    = "Ativo"
	ClientStatusPending   = "Pendente"
	ClientStatusBlacklist = "Lista Negra"
)

// placeholderNames are values the old front end sent when the name field was left blank.
var placeholderNames = map[string]struct{}{
	"":          {},
	"undefined": {},
	"n/a":       {},
	"na":        {},
	"null":      {},
}

// Client represents a customer of the tenant
type Client struct {
	ID              int64     `json:"id" db:"id"`
	Name            string    `json:"nome" db:"nome"`
	TaxID           string    `json:"cpf_cnpj" db:"cpf_cnpj"`
	Phone           string    `json:"telefone" db:"telefone"`
	Email           string    `json:"email" db:"email"`
	Address         string    `json:"endereco" db:"endereco"`
	City            string    `json:"cidade" db:"cidade"`
	State           string    `json:"estado" db:"estado"`
	ZipCode         string    `json:"cep" db:"cep"`
	Status          string    `json:"status" db:"status"`
	BlacklistReason string    `json:"motivo_lista_negra,omitempty" db:"motivo_lista_negra"`
	Notes           string    `json:"observacoes" db:"observacoes"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// ValidClientName reports whether name is a real name and not a placeholder.
func ValidClientName(name string) bool {
	_, placeholder := placeholderNames[strings.ToLower(strings.TrimSpace(name))]
	return !placeholder
}

// DTOs for requests

type CreateClientRequest struct {
	Name    string `json:"nome" validate:"clientname,max=255"`
	TaxID   string `json:"cpf_cnpj" validate:"max=20"`
	Phone   string `json:"telefone" validate:"max=30"`
	Email   string `json:"email" validate:"omitempty,email,max=255"`
	Address string `json:"endereco" validate:"max=255"`
	City    string `json:"cidade" validate:"max=100"`
	State   string `json:"estado" validate:"max=2"`
	ZipCode string `json:"cep" validate:"max=10"`
	Status  string `json:"status" validate:"omitempty,oneof=Ativo Pendente"`
	Notes   string `json:"observacoes"`
}

// UpdateClientRequest carries a partial update; nil fields are left untouched.
type UpdateClientRequest struct {
	Name    *string `json:"nome" validate:"omitempty,clientname,max=255"`
	TaxID   *string `json:"cpf_cnpj" validate:"omitempty,max=20"`
	Phone   *string `json:"telefone" validate:"omitempty,max=30"`
	Email   *string `json:"email" validate:"omitempty,email,max=255"`
	Address *string `json:"endereco" validate:"omitempty,max=255"`
	City    *string `json:"cidade" validate:"omitempty,max=100"`
	State   *string `json:"estado" validate:"omitempty,max=2"`
	ZipCode *string `json:"cep" validate:"omitempty,max=10"`
	Status  *string `json:"status" validate:"omitempty,oneof=Ativo Pendente"`
	Notes   *string `json:"observacoes"`
}

type BlacklistRequest struct {
	Status string `json:"status" validate:"required,oneof='Lista Negra' Ativo"`
	Reason string `json:"motivo" validate:"max=500"`
}

type ClientFilter struct {
	Status string
	Search string
}
