package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const registerSchema = `{
  "type": "object",
  "required": ["username", "email", "password"],
  "properties": {
    "username": {"type": "string", "minLength": 3, "maxLength": 50},
    "email": {"type": "string", "format": "email", "maxLength": 255},
    "password": {"type": "string", "minLength": 8, "maxLength": 72}
  }
}`

const profileSchema = `{
  "type": "object",
  "properties": {
    "username": {"type": "string", "minLength": 3, "maxLength": 50},
    "email": {"type": "string", "format": "email", "maxLength": 255}
  }
}`

const passwordSchema = `{
  "type": "object",
  "required": ["password"],
  "properties": {
    "password": {"type": "string", "minLength": 8, "maxLength": 72}
  }
}`

var (
	registerValidator = mustCompile("register.json", registerSchema)
	profileValidator  = mustCompile("profile.json", profileSchema)
	passwordValidator = mustCompile("password.json", passwordSchema)
)

func mustCompile(name, schema string) *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.AssertFormat = true
	if err := c.AddResource(name, strings.NewReader(schema)); err != nil {
		panic(fmt.Sprintf("add schema %s: %v", name, err))
	}
	return c.MustCompile(name)
}

// validateDoc checks doc against schema and flattens the failures into a ValidationError.
func validateDoc(schema *jsonschema.Schema, doc map[string]interface{}) error {
	err := schema.Validate(doc)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return invalid(err.Error())
	}
	var problems []string
	collectLeaves(ve, &problems)
	sort.Strings(problems)
	return invalid(problems...)
}

func collectLeaves(ve *jsonschema.ValidationError, out *[]string) {
	if len(ve.Causes) == 0 {
		field := strings.TrimPrefix(ve.InstanceLocation, "/")
		if field == "" {
			*out = append(*out, ve.Message+".")
			return
		}
		*out = append(*out, fmt.Sprintf("%s: %s.", field, ve.Message))
		return
	}
	for _, c := range ve.Causes {
		collectLeaves(c, out)
	}
}
