package flow

import (
	"fmt"

	"github.com/Cyph3rcat/ctrlfix/internal/models"
)

// requiredFields must all be set before a ticket can be assembled. Brand may
// legitimately be empty (literal fallback), but it must have been set.
var requiredFields = []models.FieldKey{
	models.FieldPhoneNumber,
	models.FieldUserName,
	models.FieldDeviceType,
	models.FieldBrand,
	models.FieldModel,
	models.FieldAdditionalInfo,
	models.FieldIssueType,
	models.FieldProblemDescription,
	models.FieldBookingChoice,
}

// AssembleTicket flattens a finished session into the persistent ticket
// record. A session that reaches the final step with an unset field is a
// programming error, reported as ErrTicketIncomplete.
func AssembleTicket(s *models.Session) (models.TicketRecord, error) {
	for _, key := range requiredFields {
		if !s.HasField(key) {
			return models.TicketRecord{}, fmt.Errorf("%w: %s not set", models.ErrTicketIncomplete, key)
		}
	}
	return models.TicketRecord{
		TicketID:            s.TicketID,
		Timestamp:           s.StartedAt,
		PhoneNumber:         s.Field(models.FieldPhoneNumber),
		UserName:            s.Field(models.FieldUserName),
		DeviceType:          s.Field(models.FieldDeviceType),
		Brand:               s.Field(models.FieldBrand),
		Model:               s.Field(models.FieldModel),
		AdditionalInfo:      s.Field(models.FieldAdditionalInfo),
		IssueType:           s.Field(models.FieldIssueType),
		ProblemDescription:  s.Field(models.FieldProblemDescription),
		DiagnosticCompleted: s.DiagnosticOptedIn,
		PartsNeeded:         s.Parts(),
		ServiceFee:          s.ServiceFee,
		PartsCost:           s.PartsCost,
		EstimatedCost:       s.EstimatedTotal,
		BookingChoice:       s.Field(models.FieldBookingChoice),
		Unverified:          s.UnverifiedFields(),
	}, nil
}
