package util

import (
	"strings"

	"github.com/google/uuid"
)

// TicketIDLength is the number of UUID characters kept for the short ticket id.
const TicketIDLength = 8

// NewTicketID generates a short, uppercase ticket identifier derived from a
// UUID4, easy for users to read back over the phone.
func NewTicketID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(id[:TicketIDLength])
}
