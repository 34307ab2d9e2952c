package config

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	teamCodePattern  = regexp.MustCompile(`^[A-Z]{2,4}$`)
	snowflakePattern = regexp.MustCompile(`^[0-9]{17,19}$`)
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator with the teamcode and snowflake
// tags registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation("teamcode", func(fl validator.FieldLevel) bool {
			return IsTeamCode(fl.Field().String())
		})
		_ = v.RegisterValidation("snowflake", func(fl validator.FieldLevel) bool {
			return IsSnowflake(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// IsTeamCode reports whether s is a 2-4 letter upper-case team code like NZ or IND.
func IsTeamCode(s string) bool {
	return teamCodePattern.MatchString(s)
}

// IsSnowflake reports whether s looks like a Discord id.
func IsSnowflake(s string) bool {
	return snowflakePattern.MatchString(s)
}

// Validate checks everything except the discord section.
func (c *Config) Validate() error {
	return describe(Validator().Struct(c))
}

// Validate checks the discord section on its own.
func (d *DiscordConfig) Validate() error {
	return describe(Validator().Struct(d))
}

// describe flattens validator errors into one readable error.
func describe(err error) error {
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}
