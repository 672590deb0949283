// Package validation provides declarative form validation rule tables.
package validation

import (
	"regexp"
	"unicode/utf8"
)

// Form holds submitted field values keyed by field name.
type Form map[string]string

// Rule pairs a field with a predicate and the message shown when it fails.
// Rules are evaluated in order; the first failing rule per field wins.
type Rule struct {
	Field   string
	Check   func(value string, form Form) bool
	Message string
}

// Result is the outcome of evaluating a rule table against a form.
// Validation never panics or raises; callers branch on OK.
type Result struct {
	OK     bool
	Errors map[string]string
}

// Apply evaluates the rule table against the form.
func Apply(rules []Rule, form Form) Result {
	errs := make(map[string]string)
	for _, r := range rules {
		if _, failed := errs[r.Field]; failed {
			continue
		}
		if !r.Check(form[r.Field], form) {
			errs[r.Field] = r.Message
		}
	}
	return Result{OK: len(errs) == 0, Errors: errs}
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Required fails on the empty string.
func Required(value string, _ Form) bool {
	return value != ""
}

// Length returns a predicate checking the value is within [min, max]
// characters. Characters, not bytes: a non-ASCII username must not burn
// through the limit three bytes at a time.
func Length(min, max int) func(string, Form) bool {
	return func(value string, _ Form) bool {
		n := utf8.RuneCountInString(value)
		return n >= min && n <= max
	}
}

// MinLength returns a predicate checking the value is at least min characters.
func MinLength(min int) func(string, Form) bool {
	return func(value string, _ Form) bool {
		return utf8.RuneCountInString(value) >= min
	}
}

// Email checks basic email format.
func Email(value string, _ Form) bool {
	return len(value) <= 254 && emailRegex.MatchString(value)
}

// Matches returns a predicate checking the value equals another field's value.
func Matches(other string) func(string, Form) bool {
	return func(value string, form Form) bool {
		return value == form[other]
	}
}

// SignupRules validates the account creation form.
var SignupRules = []Rule{
	{Field: "username", Check: Required, Message: "This field cannot be empty."},
	{Field: "username", Check: Length(3, 15), Message: "Username must be between 3 and 15 characters."},
	{Field: "email", Check: Required, Message: "This field cannot be empty."},
	{Field: "email", Check: Email, Message: "Please enter a valid email address."},
	{Field: "password", Check: Required, Message: "This field cannot be empty."},
	{Field: "password", Check: Length(3, 15), Message: "Password must be between 3 and 15 characters."},
	{Field: "password2", Check: Required, Message: "This field cannot be empty."},
	{Field: "password2", Check: Matches("password"), Message: "The two password fields must match."},
}

// LoginRules validates the login form.
var LoginRules = []Rule{
	{Field: "email", Check: Required, Message: "This field cannot be empty."},
	{Field: "email", Check: Email, Message: "Please enter a valid email address."},
	{Field: "password", Check: Required, Message: "This field cannot be empty."},
}

// ArticleRules validates the new-article and edit-article forms.
var ArticleRules = []Rule{
	{Field: "title", Check: Required, Message: "This field cannot be empty."},
	{Field: "title", Check: Length(3, 50), Message: "Title must be between 3 and 50 characters."},
	{Field: "body", Check: Required, Message: "This field cannot be empty."},
	{Field: "body", Check: MinLength(5), Message: "Article body must be at least 5 characters."},
}

// AccountRules validates the account update form.
var AccountRules = []Rule{
	{Field: "username", Check: Required, Message: "This field cannot be empty."},
	{Field: "username", Check: Length(3, 15), Message: "Username must be between 3 and 15 characters."},
	{Field: "email", Check: Required, Message: "This field cannot be empty."},
	{Field: "email", Check: Email, Message: "Please enter a valid email address."},
}
