package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// Capability is what an operation needs from the caller.
type Capability int

const (
	CapabilityRead Capability = iota
	CapabilityWrite
)

func (c Capability) String() string {
	if c == CapabilityWrite {
		return "write"
	}
	return "read"
}

// CapabilityFor maps an HTTP method to the capability it requires. Safe methods only read.
func CapabilityFor(method string) Capability {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return CapabilityRead
	default:
		return CapabilityWrite
	}
}

// Policy decides whether a principal may exercise a capability.
// Authorize returns nil, an UNAUTHORIZED error for anonymous callers, or a FORBIDDEN error.
type Policy interface {
	Authorize(principal *Principal, capability Capability) error
}

var (
	// Public lets anyone through.
	Public Policy = publicPolicy{}
	// AuthenticatedReadStaffWrite lets any signed-in user read and only staff write.
	AuthenticatedReadStaffWrite Policy = authenticatedReadStaffWrite{}
	// StaffOnly requires staff for reads and writes alike.
	StaffOnly Policy = staffOnly{}
)

type publicPolicy struct{}

func (publicPolicy) Authorize(*Principal, Capability) error { return nil }

type authenticatedReadStaffWrite struct{}

func (authenticatedReadStaffWrite) Authorize(p *Principal, c Capability) error {
	if p == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if c == CapabilityWrite && !p.IsStaff() {
		return apperrors.NewForbidden("staff access required")
	}
	return nil
}

type staffOnly struct{}

func (staffOnly) Authorize(p *Principal, _ Capability) error {
	if p == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if !p.IsStaff() {
		return apperrors.NewForbidden("staff access required")
	}
	return nil
}

// Enforce applies policy to the route using the request method's capability.
func Enforce(policy Policy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, _ := PrincipalFromContext(c)
		if err := policy.Authorize(principal, CapabilityFor(c.Method())); err != nil {
			return err
		}
		return c.Next()
	}
}
