package businessflow

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/farhadmsg/blastline/app/dto"
	"github.com/farhadmsg/blastline/models"
	"github.com/farhadmsg/blastline/repository"
	"github.com/farhadmsg/blastline/utils"
)

// Recipient is one resolved destination with optional personalization data.
type Recipient struct {
	Destination string
	Name        string
	ContactID   *uint
}

// RecipientResolver turns the three recipient sources of a dispatch request
// into one flat, deduplicated, order-preserving recipient list.
type RecipientResolver interface {
	Resolve(ctx context.Context, req *dto.DispatchRequest, channel models.MessageChannel) ([]Recipient, error)
}

type RecipientResolverImpl struct {
	contactRepo repository.ContactRepository
	importer    *FileImporter
}

func NewRecipientResolver(contactRepo repository.ContactRepository, importer *FileImporter) RecipientResolver {
	return &RecipientResolverImpl{contactRepo: contactRepo, importer: importer}
}

var numbersSplitRe = regexp.MustCompile(`[\s,;]+`)

// Resolve flattens numbers, group members, and file rows in that order,
// drops empty and non-numeric destinations, and deduplicates keeping the
// first occurrence. An empty result is an input error raised before any
// billing or log creation.
func (r *RecipientResolverImpl) Resolve(ctx context.Context, req *dto.DispatchRequest, channel models.MessageChannel) ([]Recipient, error) {
	var out []Recipient

	for _, raw := range numbersSplitRe.Split(req.Numbers, -1) {
		dest := utils.NormalizeDestination(raw)
		if dest == "" {
			continue
		}
		out = append(out, Recipient{Destination: dest})
	}

	if len(req.GroupIDs) > 0 {
		fromGroups, err := r.resolveGroups(ctx, req.GroupIDs, req.Conditions, channel)
		if err != nil {
			return nil, err
		}
		out = append(out, fromGroups...)
	}

	if req.FilePath != "" {
		rows, err := r.importer.Import(req.FilePath)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			out = append(out, Recipient{Destination: utils.NormalizeDestination(row.Destination), Name: row.Name})
		}
	}

	seen := make(map[string]struct{}, len(out))
	unique := out[:0]
	for _, rec := range out {
		if !utils.LooksNumeric(rec.Destination) {
			continue
		}
		if _, dup := seen[rec.Destination]; dup {
			continue
		}
		seen[rec.Destination] = struct{}{}
		unique = append(unique, rec)
	}

	if len(unique) == 0 {
		return nil, NewBusinessError("INPUT_NO_RECIPIENTS", "No valid recipients resolved from request", ErrNoRecipientsResolved)
	}
	return unique, nil
}

func (r *RecipientResolverImpl) resolveGroups(ctx context.Context, groupIDs []uint, conditions []dto.AttributeCondition, channel models.MessageChannel) ([]Recipient, error) {
	contacts, err := r.contactRepo.ByGroupIDs(ctx, groupIDs)
	if err != nil {
		return nil, NewBusinessError("RECIPIENT_GROUP_LOOKUP_FAILED", "Failed to load group contacts", err)
	}

	var out []Recipient
	for _, contact := range contacts {
		match, err := contactMatches(contact, conditions)
		if err != nil {
			return nil, err
		}
		if !match {
			continue
		}
		dest := utils.NormalizeDestination(contact.DestinationFor(channel))
		if dest == "" {
			continue
		}
		id := contact.ID
		out = append(out, Recipient{Destination: dest, Name: contact.Name, ContactID: &id})
	}
	return out, nil
}

// contactMatches evaluates every condition against the contact's attribute
// map; all conditions must hold.
func contactMatches(contact *models.Contact, conditions []dto.AttributeCondition) (bool, error) {
	if len(conditions) == 0 {
		return true, nil
	}
	attrs, err := contact.AttributeMap()
	if err != nil {
		return false, NewBusinessErrorf("RECIPIENT_ATTRIBUTES_INVALID", "Contact %d has malformed attributes", err, contact.ID)
	}
	for _, cond := range conditions {
		value, ok := attrs[cond.Attribute]
		if !ok {
			return false, nil
		}
		match, err := evaluateCondition(cond, value)
		if err != nil {
			return false, err
		}
		if !match {
			return false, nil
		}
	}
	return true, nil
}

func evaluateCondition(cond dto.AttributeCondition, value string) (bool, error) {
	switch models.AttributeType(cond.Type) {
	case models.AttributeTypeDate:
		return matchDate(cond, value)
	case models.AttributeTypeBoolean:
		return matchBoolean(cond, value)
	case models.AttributeTypeNumber:
		return matchNumber(cond, value)
	case models.AttributeTypeText:
		return strings.Contains(strings.ToLower(value), strings.ToLower(cond.Value)), nil
	default:
		return false, NewBusinessErrorf("INPUT_ATTRIBUTE_TYPE", "Unknown attribute type %q", ErrInvalidAttributeType, cond.Type)
	}
}

const attrDateLayout = "2006-01-02"

// matchDate compares on the UTC calendar day: same-day equality for a single
// operand, inclusive between for two.
func matchDate(cond dto.AttributeCondition, value string) (bool, error) {
	actual, err := time.Parse(attrDateLayout, strings.TrimSpace(value))
	if err != nil {
		return false, nil
	}
	from, err := time.Parse(attrDateLayout, strings.TrimSpace(cond.Value))
	if err != nil {
		return false, NewBusinessErrorf("INPUT_ATTRIBUTE_DATE", "Invalid date operand %q", ErrInvalidAttributeType, cond.Value)
	}
	if cond.ValueTo == nil {
		return utils.SameUTCDay(actual, from), nil
	}
	to, err := time.Parse(attrDateLayout, strings.TrimSpace(*cond.ValueTo))
	if err != nil {
		return false, NewBusinessErrorf("INPUT_ATTRIBUTE_DATE", "Invalid date operand %q", ErrInvalidAttributeType, *cond.ValueTo)
	}
	return !actual.Before(from) && !actual.After(to), nil
}

func matchBoolean(cond dto.AttributeCondition, value string) (bool, error) {
	actual, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, nil
	}
	expected, err := strconv.ParseBool(strings.TrimSpace(cond.Value))
	if err != nil {
		return false, NewBusinessErrorf("INPUT_ATTRIBUTE_BOOL", "Invalid boolean operand %q", ErrInvalidAttributeType, cond.Value)
	}
	return actual == expected, nil
}

// matchNumber is equality for a single operand and inclusive between for two.
func matchNumber(cond dto.AttributeCondition, value string) (bool, error) {
	actual, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return false, nil
	}
	from, err := strconv.ParseFloat(strings.TrimSpace(cond.Value), 64)
	if err != nil {
		return false, NewBusinessErrorf("INPUT_ATTRIBUTE_NUMBER", "Invalid numeric operand %q", ErrInvalidAttributeType, cond.Value)
	}
	if cond.ValueTo == nil {
		return actual == from, nil
	}
	to, err := strconv.ParseFloat(strings.TrimSpace(*cond.ValueTo), 64)
	if err != nil {
		return false, NewBusinessErrorf("INPUT_ATTRIBUTE_NUMBER", "Invalid numeric operand %q", ErrInvalidAttributeType, *cond.ValueTo)
	}
	return actual >= from && actual <= to, nil
}
