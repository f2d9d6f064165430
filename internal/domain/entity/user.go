package entity

import (
	"strings"
	"time"

	"github.com/jhoicas/inventario-movimientos/internal/domain"
)

// Role es el rol del usuario. Enumeración cerrada: el valor cero no es válido.
type Role uint8

// Roles válidos para User.
const (
	RoleOperator Role = iota + 1 // operador: solo registra movimientos
	RoleManager                  // gestor: administra el catálogo
)

// Nombres de los roles en la API y en la base de datos.
const (
	RoleNameOperator = "operador"
	RoleNameManager  = "gestor"
)

// ParseRole convierte el nombre externo de un rol. Acepta también los nombres en inglés.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case RoleNameOperator, "operator":
		return RoleOperator, nil
	case RoleNameManager, "manager":
		return RoleManager, nil
	}
	return 0, domain.ErrInvalidInput
}

// Valid indica si r es uno de los roles definidos.
func (r Role) Valid() bool {
	return r == RoleOperator || r == RoleManager
}

func (r Role) String() string {
	switch r {
	case RoleOperator:
		return RoleNameOperator
	case RoleManager:
		return RoleNameManager
	}
	return ""
}

// MarshalText serializa el rol con su nombre externo (JSON, claims).
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, domain.ErrInvalidInput
	}
	return []byte(r.String()), nil
}

// UnmarshalText acepta cualquier nombre reconocido por ParseRole.
func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// User representa un usuario del sistema.
type User struct {
	ID           string
	Name         string
	Email        string // normalizado: trim + minúsculas
	PasswordHash string // bcrypt, nunca la contraseña plana
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MinPasswordLength longitud mínima de la contraseña en texto plano.
const MinPasswordLength = 6

// NormalizeEmail aplica la normalización usada para unicidad y búsqueda.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewUser valida los campos y construye el usuario (el hash ya debe venir calculado).
func NewUser(id, name, email, passwordHash string, role Role, now time.Time) (*User, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	if id == "" || name == "" || email == "" || passwordHash == "" {
		return nil, domain.ErrInvalidInput
	}
	if !strings.Contains(email, "@") {
		return nil, domain.ErrInvalidInput
	}
	if !role.Valid() {
		return nil, domain.ErrInvalidInput
	}
	return &User{
		ID:           id,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
