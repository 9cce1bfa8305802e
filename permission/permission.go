// Package permission evaluates whether a caller may perform a quote
// operation. All checks are pure; callers pass in the quote and what is
// changing.
package permission

import (
	"errors"
	"strings"
)

var ErrOperationNotPermitted = errors.New("operation-not-permitted")

type Capability string

const (
	CreateQuotes                Capability = "create-quotes"
	UseQuotes                   Capability = "use-quotes"
	DeclineQuotes               Capability = "decline-quotes"
	AccessQuotesAll             Capability = "access-quotes-all"
	AccessQuotesOrganization    Capability = "access-quotes-organization"
	AccessQuotesAllSalesChannel Capability = "access-quotes-all-saleschannel"
	EditQuotesAll               Capability = "edit-quotes-all"
	EditQuotesOrganization      Capability = "edit-quotes-organization"
)

// Set holds a caller's resolved capabilities. The edit/access families track
// whether the caller holds any permission of that family at all, regardless
// of scope, which is what the coarse operation checks key on.
type Set struct {
	caps      map[Capability]bool
	canEdit   bool
	canAccess bool
}

// NewSet resolves raw permission strings into capabilities. Unknown strings
// still contribute to family membership so that scoped variants introduced
// upstream keep granting the base operation.
func NewSet(permissions []string) Set {
	s := Set{caps: make(map[Capability]bool, len(permissions))}
	for _, p := range permissions {
		s.caps[Capability(p)] = true
		if strings.Contains(p, "edit-quotes") {
			s.canEdit = true
		}
		if strings.Contains(p, "access-quotes") {
			s.canAccess = true
		}
	}
	return s
}

func (s Set) Has(c Capability) bool { return s.caps[c] }

// CanEditQuotes reports membership in the edit-quotes family at any scope.
func (s Set) CanEditQuotes() bool { return s.canEdit }

// CanAccessQuotes reports membership in the access-quotes family at any
// scope.
func (s Set) CanAccessQuotes() bool { return s.canAccess }

func CheckCreate(s Set) error {
	if !s.Has(CreateQuotes) {
		return ErrOperationNotPermitted
	}
	return nil
}

func CheckUse(s Set) error {
	if !s.Has(UseQuotes) {
		return ErrOperationNotPermitted
	}
	return nil
}

// UpdateRequest describes what an update mutation is trying to change.
type UpdateRequest struct {
	ItemsChanged      bool
	ExpirationChanged bool
	Decline           bool
}

// QuoteScope is the org/cost-center/sales-channel identity of an existing
// quote.
type QuoteScope struct {
	Organization string
	CostCenter   string
	SalesChannel string
}

// CallerScope is the caller's own org/cost-center/sales-channel identity.
type CallerScope struct {
	Organization string
	CostCenter   string
	SalesChannel string
}

// CheckUpdate gates an update mutation: item changes need the edit family,
// non-item changes need the access family, declining needs decline-quotes,
// and expiration-date changes follow the edit gating. Scope then narrows to
// the caller's organization or cost center unless an -all capability lifts
// the restriction.
func CheckUpdate(s Set, caller CallerScope, quote QuoteScope, req UpdateRequest) error {
	if req.ItemsChanged && !s.CanEditQuotes() {
		return ErrOperationNotPermitted
	}
	if !req.ItemsChanged && !s.CanAccessQuotes() {
		return ErrOperationNotPermitted
	}
	if req.Decline && !s.Has(DeclineQuotes) {
		return ErrOperationNotPermitted
	}
	if req.ExpirationChanged && !req.Decline && !s.CanEditQuotes() {
		return ErrOperationNotPermitted
	}

	itemsOrExpiration := req.ItemsChanged || req.ExpirationChanged

	if itemsOrExpiration {
		if !s.Has(EditQuotesAll) && s.Has(EditQuotesOrganization) &&
			caller.Organization != quote.Organization {
			return ErrOperationNotPermitted
		}
		if !s.Has(EditQuotesAll) && !s.Has(EditQuotesOrganization) &&
			caller.CostCenter != quote.CostCenter {
			return ErrOperationNotPermitted
		}
	} else {
		if !s.Has(AccessQuotesAll) && s.Has(AccessQuotesOrganization) &&
			caller.Organization != quote.Organization {
			return ErrOperationNotPermitted
		}
		if !s.Has(AccessQuotesAll) && !s.Has(AccessQuotesOrganization) &&
			caller.CostCenter != quote.CostCenter {
			return ErrOperationNotPermitted
		}
	}

	return nil
}

// CanView reports whether a single quote is visible to the caller. Reads
// narrow by filtering rather than by hard error.
func CanView(s Set, caller CallerScope, quote QuoteScope) bool {
	if !s.CanAccessQuotes() {
		return false
	}

	if !s.Has(AccessQuotesAll) && s.Has(AccessQuotesOrganization) &&
		caller.Organization != quote.Organization {
		return false
	}
	if !s.Has(AccessQuotesAll) && !s.Has(AccessQuotesOrganization) &&
		caller.CostCenter != quote.CostCenter {
		return false
	}
	if !s.Has(AccessQuotesAll) && !s.Has(AccessQuotesAllSalesChannel) &&
		quote.SalesChannel != "" && caller.SalesChannel != quote.SalesChannel {
		return false
	}

	return true
}

// ListScope says which constraints a quote listing must bake into its search
// filter for this caller.
type ListScope struct {
	RestrictOrganization bool
	RestrictCostCenter   bool
	RestrictSalesChannel bool
}

func ScopeForList(s Set, callerSalesChannel string) ListScope {
	return ListScope{
		RestrictOrganization: !s.Has(AccessQuotesAll),
		RestrictCostCenter:   !s.Has(AccessQuotesAll) && !s.Has(AccessQuotesOrganization),
		RestrictSalesChannel: !s.Has(AccessQuotesAll) && !s.Has(AccessQuotesAllSalesChannel) &&
			callerSalesChannel != "",
	}
}
