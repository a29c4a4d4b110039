// Package docs registers the OpenAPI description served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "Solis Center",
            "email": "sistemas@soliscenter.mx"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {},
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and the session token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {"name": "Auth", "description": "Registration, sign-in and session state"},
        {"name": "Users", "description": "Team directory and user administration"},
        {"name": "Lists", "description": "Task lists"},
        {"name": "Tasks", "description": "Task mutations and projected views"},
        {"name": "Documents", "description": "Document library"},
        {"name": "Reports", "description": "Reports and AI commentary"},
        {"name": "Forms", "description": "Form templates and submissions"},
        {"name": "Public forms", "description": "Unauthenticated form responder"},
        {"name": "Live", "description": "Server-sent event views"}
    ]
}`

// SwaggerInfo is regenerated by `swag init -g cmd/server/main.go`; the paths
// above are filled in from the handler annotations.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "Solis Center API",
	Description:      "Operations console for the Solis Center law firm.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
