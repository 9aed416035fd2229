package recall

import (
	"encoding/base64"
	"strings"

	"golang.org/x/text/unicode/norm"

	"recall/internal/model"
)

// bcrypt ignores everything past 72 bytes and x/crypto rejects longer input.
const maxPasswordBytes = 72

func cleanText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// requiredText trims s and fails with ErrEmptyField when nothing is left.
func requiredText(field, s string) (string, error) {
	s = cleanText(s)
	if s == "" {
		return "", invalid(field, ErrEmptyField)
	}
	return s, nil
}

// optionalText trims s; empty results become nil.
func optionalText(s *string) *string {
	if s == nil {
		return nil
	}
	v := cleanText(*s)
	if v == "" {
		return nil
	}
	return &v
}

func validateEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", invalid("email", ErrEmptyField)
	}
	if !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func validatePassword(field, password string) error {
	if password == "" {
		return invalid(field, ErrEmptyField)
	}
	if len(password) > maxPasswordBytes {
		return invalid(field, ErrInvalidInput)
	}
	return nil
}

func validateStatus(status string) error {
	switch status {
	case model.StatusInbox, model.StatusPlanned, model.StatusProgress, model.StatusDone:
		return nil
	}
	return invalid("status", ErrInvalidEnum)
}

func validatePriority(priority *string) (*string, error) {
	if priority == nil || *priority == "" {
		return nil, nil
	}
	switch *priority {
	case model.PriorityHigh, model.PriorityMedium, model.PriorityLow:
		return priority, nil
	}
	return nil, invalid("priority", ErrInvalidEnum)
}

// validateEventTimes requires end to be strictly after start.
func validateEventTimes(start int64, end *int64) error {
	if end != nil && *end <= start {
		return ErrInvalidTimeRange
	}
	return nil
}

// validateDates allows a single-day project (end == start).
func validateDates(start, end *int64) error {
	if start != nil && end != nil && *end < *start {
		return invalid("end_date", ErrInvalidTimeRange)
	}
	return nil
}

// validateFile checks the declared size and the decoded size of a base64
// payload against model.MaxFileSize.
func validateFile(fileData *string, fileSize *int64) (*string, error) {
	if fileSize != nil {
		if *fileSize < 0 {
			return nil, invalid("file_size", ErrInvalidInput)
		}
		if *fileSize > model.MaxFileSize {
			return nil, ErrFileTooLarge
		}
	}
	if fileData == nil || *fileData == "" {
		return nil, nil
	}
	if int64(base64.StdEncoding.DecodedLen(len(*fileData))) > model.MaxFileSize+2 {
		return nil, ErrFileTooLarge
	}
	decoded, err := base64.StdEncoding.DecodeString(*fileData)
	if err != nil {
		return nil, invalid("file_data", ErrInvalidInput)
	}
	if int64(len(decoded)) > model.MaxFileSize {
		return nil, ErrFileTooLarge
	}
	return fileData, nil
}
