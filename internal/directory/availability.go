package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Availability is the result of a principal-name availability check.
type Availability struct {
	Available   bool
	Suggestions []string // populated only when the name is taken
}

// CheckAvailability performs a point lookup for the candidate principal name.
// A not-found lookup means the name is free; any other lookup failure
// propagates. When the name is taken, exactly three deterministic
// alternatives are proposed.
func CheckAvailability(ctx context.Context, dir Directory, upn string) (*Availability, error) {
	local, domain, err := splitPrincipalName(upn)
	if err != nil {
		return nil, err
	}

	_, err = dir.FindUserByPrincipalName(ctx, upn)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &Availability{Available: true}, nil
		}
		return nil, fmt.Errorf("availability check for %s failed: %w", upn, err)
	}

	return &Availability{
		Available:   false,
		Suggestions: suggestAlternatives(local, domain, time.Now().Year()),
	}, nil
}

// suggestAlternatives builds the three fixed suggestion patterns.
func suggestAlternatives(local, domain string, year int) []string {
	return []string{
		fmt.Sprintf("%s1@%s", local, domain),
		fmt.Sprintf("%s.new@%s", local, domain),
		fmt.Sprintf("%s%d@%s", local, year, domain),
	}
}

func splitPrincipalName(upn string) (local, domain string, err error) {
	at := strings.LastIndex(upn, "@")
	if at <= 0 || at == len(upn)-1 {
		return "", "", fmt.Errorf("invalid principal name %q: expected localpart@domain", upn)
	}
	return upn[:at], upn[at+1:], nil
}
