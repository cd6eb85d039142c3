package wschat

// Role is the part a client plays in the chat.
type Role string

const (
	RoleProducer Role = "producer"
	RoleConsumer Role = "consumer"
	RoleBoth     Role = "both"
)

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleProducer, RoleConsumer, RoleBoth:
		return r, nil
	}
	return "", ErrInvalidRole
}

// Produces reports whether the role sends console input.
func (r Role) Produces() bool { return r == RoleProducer || r == RoleBoth }

// Consumes reports whether the role prints messages from the server.
func (r Role) Consumes() bool { return r == RoleConsumer || r == RoleBoth }

// Path is the request path used in the opening handshake.
func (r Role) Path() string { return "/" + string(r) }
