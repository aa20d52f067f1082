// Package repository holds the MySQL data access for users, events and
// bookings. Domain-level failures are reported with the sentinel errors in
// package model; errors specific to storage live here.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrEmailExists is returned when signing up with an email that is taken.
var ErrEmailExists = errors.New("email already exists")

// ErrUserNotFound is returned when no user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

const (
	mysqlDuplicateKey    = 1062
	mysqlRowIsReferenced = 1451
)

func mysqlErrorIs(err error, number uint16) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == number
	}
	return false
}

// likePattern lower-cases s and escapes LIKE wildcards so user input is
// matched literally as a substring.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(strings.TrimSpace(s))) + "%"
}
