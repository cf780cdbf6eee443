package telegram

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionAdd     = "add"
)

// ActionData encode un bouton sous la forme {action}_{id}
func ActionData(action string, id int64) string {
	return action + "_" + strconv.FormatInt(id, 10)
}

// ParseActionData décode {action}_{id} ; l'identifiant doit être strictement positif
func ParseActionData(data string) (string, int64, error) {
	i := strings.LastIndex(data, "_")
	if i <= 0 || i == len(data)-1 {
		return "", 0, fmt.Errorf("action mal formée: %q", data)
	}
	id, err := strconv.ParseInt(data[i+1:], 10, 64)
	if err != nil || id <= 0 {
		return "", 0, fmt.Errorf("identifiant invalide dans %q", data)
	}
	return data[:i], id, nil
}
