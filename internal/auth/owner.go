package auth

// Actor identifie l'auteur d'une action, par chat Telegram ou par sujet de jeton
type Actor struct {
	ChatID  int64
	Subject string
}

func ChatActor(chatID int64) Actor      { return Actor{ChatID: chatID} }
func SubjectActor(subject string) Actor { return Actor{Subject: subject} }

// Authorizer décide si un acteur peut effectuer les actions propriétaire
type Authorizer interface {
	IsOwner(actor Actor) bool
}

// SingleOwner autorise un unique propriétaire configuré, reconnu par son chat ou son sujet JWT
type SingleOwner struct {
	ChatID  int64
	Subject string
}

func (o SingleOwner) IsOwner(actor Actor) bool {
	if actor.ChatID != 0 && o.ChatID != 0 && actor.ChatID == o.ChatID {
		return true
	}
	return actor.Subject != "" && o.Subject != "" && actor.Subject == o.Subject
}

// AuthorizerFunc adapte une fonction en Authorizer
type AuthorizerFunc func(actor Actor) bool

func (f AuthorizerFunc) IsOwner(actor Actor) bool { return f(actor) }
