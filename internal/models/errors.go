package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound             = errors.New("introuvable")
	ErrInvalidState         = errors.New("état de commande invalide")
	ErrInsufficientStock    = errors.New("stock insuffisant")
	ErrValidation           = errors.New("données invalides")
	ErrNotificationDelivery = errors.New("échec d'envoi de notification")
	ErrRender               = errors.New("échec de génération de facture")
)

type StockError struct {
	ProductID   int64
	ProductName string
	Requested   int
	Available   int
}

func (e *StockError) Error() string {
	if e.ProductName != "" {
		return fmt.Sprintf("stock insuffisant pour %s (demandé %d, disponible %d)", e.ProductName, e.Requested, e.Available)
	}
	return fmt.Sprintf("stock insuffisant pour le produit #%d (demandé %d)", e.ProductID, e.Requested)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

type StateError struct {
	OrderID int64
	Status  OrderStatus
	Action  string
}

func (e *StateError) Error() string {
	prep := "de "
	if e.Action != "" && strings.ContainsRune("aeiouéè", []rune(e.Action)[0]) {
		prep = "d'"
	}
	return fmt.Sprintf("impossible %s%s la commande #%d : statut actuel « %s »", prep, e.Action, e.OrderID, e.Status.Label())
}

func (e *StateError) Unwrap() error { return ErrInvalidState }

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func ProductNotFound(id int64) error {
	return fmt.Errorf("produit #%d %w", id, ErrNotFound)
}

func OrderNotFound(id int64) error {
	return fmt.Errorf("commande #%d %w", id, ErrNotFound)
}
