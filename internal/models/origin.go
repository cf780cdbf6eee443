package models

import (
	"fmt"
	"strconv"
)

type OriginKind string

const (
	OriginChat OriginKind = "chat"
	OriginWeb  OriginKind = "web"
)

// Origin identifie le canal par lequel un panier ou une commande a été créé.
// Implémenté uniquement par ChatOrigin et WebOrigin.
type Origin interface {
	Kind() OriginKind
	Ref() string
	// Key sert de clé de session pour les paniers et les abonnements temps réel
	Key() string
}

type ChatOrigin struct {
	ChatID int64
}

func (o ChatOrigin) Kind() OriginKind { return OriginChat }
func (o ChatOrigin) Ref() string      { return strconv.FormatInt(o.ChatID, 10) }
func (o ChatOrigin) Key() string      { return "chat:" + o.Ref() }

type WebOrigin struct {
	SessionID string
}

func (o WebOrigin) Kind() OriginKind { return OriginWeb }
func (o WebOrigin) Ref() string      { return o.SessionID }
func (o WebOrigin) Key() string      { return "web:" + o.SessionID }

// ParseOrigin reconstruit l'origine depuis les colonnes persistées
func ParseOrigin(kind, ref string) (Origin, error) {
	switch OriginKind(kind) {
	case OriginChat:
		id, err := strconv.ParseInt(ref, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("origine chat invalide %q: %w", ref, err)
		}
		return ChatOrigin{ChatID: id}, nil
	case OriginWeb:
		return WebOrigin{SessionID: ref}, nil
	}
	return nil, fmt.Errorf("type d'origine inconnu %q", kind)
}

// SameOrigin compare deux origines par type et référence
func SameOrigin(a, b Origin) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Kind() == b.Kind() && a.Ref() == b.Ref()
}
