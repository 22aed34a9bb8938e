package extract

import (
	"net/mail"
	"strings"

	"sift_server/core/port/out"
)

// MessageHeaders holds the normalized header fields of one message.
type MessageHeaders struct {
	Subject    string
	DateHeader string
	FromRaw    string
	FromName   string
	FromEmail  string
}

// ParseHeaders extracts subject, date and sender from the header list.
// Header names match case-insensitively; a missing subject defaults to the
// "No Subject" sentinel.
func ParseHeaders(headers []out.RawHeader) MessageHeaders {
	h := MessageHeaders{Subject: NoSubject}

	for _, header := range headers {
		switch strings.ToLower(header.Name) {
		case "subject":
			h.Subject = header.Value
		case "date":
			h.DateHeader = header.Value
		case "from":
			h.FromRaw = header.Value
		}
	}

	h.FromName, h.FromEmail = parseSender(h.FromRaw)
	return h
}

// parseSender decomposes a From header into display name and address.
// "Jane Doe <jane@x.com>" yields ("Jane Doe", "jane@x.com") and a bare
// address yields ("", address). Input the address grammar rejects yields
// two empty strings; malformed senders never fail the pipeline.
func parseSender(raw string) (name, address string) {
	if raw == "" {
		return "", ""
	}

	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return "", ""
	}

	return addr.Name, addr.Address
}
