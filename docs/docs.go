// Package docs registers the OpenAPI description served at /swagger.
// Regenerate with `swag init` after changing handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/register": {"post": {"tags": ["auth"], "summary": "Register a new user", "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}}}},
        "/auth/login": {"post": {"tags": ["auth"], "summary": "Log in a user", "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}},
        "/auth/logout": {"post": {"security": [{"Bearer": []}], "tags": ["auth"], "summary": "Log out a user", "responses": {"200": {"description": "OK"}}}},
        "/auth/user": {"get": {"security": [{"Bearer": []}], "tags": ["user"], "summary": "Get current user", "responses": {"200": {"description": "OK"}}}},
        "/user/credits": {"get": {"security": [{"Bearer": []}], "tags": ["user"], "summary": "Get credit balance", "responses": {"200": {"description": "OK"}}}},
        "/user/project": {"post": {"security": [{"Bearer": []}], "tags": ["user"], "summary": "Create a project", "responses": {"200": {"description": "OK"}, "403": {"description": "Insufficient credits"}}}},
        "/user/project/{projectId}": {"get": {"security": [{"Bearer": []}], "tags": ["user"], "summary": "Get a project", "parameters": [{"type": "string", "name": "projectId", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/user/projects": {"get": {"security": [{"Bearer": []}], "tags": ["user"], "summary": "Get the most recently updated project", "responses": {"200": {"description": "OK"}}}},
        "/user/projects/all": {"get": {"security": [{"Bearer": []}], "tags": ["user"], "summary": "List projects", "responses": {"200": {"description": "OK"}}}},
        "/user/publish-toggle/{projectId}": {"get": {"security": [{"Bearer": []}], "tags": ["user"], "summary": "Toggle publish", "parameters": [{"type": "string", "name": "projectId", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/project/revision/{projectId}": {"post": {"security": [{"Bearer": []}], "tags": ["project"], "summary": "Request a revision", "parameters": [{"type": "string", "name": "projectId", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "403": {"description": "Insufficient credits"}, "409": {"description": "Project busy"}, "500": {"description": "Generation failed, credits refunded"}}}},
        "/project/save/{projectId}": {"put": {"security": [{"Bearer": []}], "tags": ["project"], "summary": "Save code", "parameters": [{"type": "string", "name": "projectId", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/project/rollback/{projectId}/{versionId}": {"get": {"security": [{"Bearer": []}], "tags": ["project"], "summary": "Roll back to a version", "parameters": [{"type": "string", "name": "projectId", "in": "path", "required": true}, {"type": "string", "name": "versionId", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/project/preview/{projectId}": {"get": {"security": [{"Bearer": []}], "tags": ["project"], "summary": "Preview a project", "parameters": [{"type": "string", "name": "projectId", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/project/published/{projectId}": {"get": {"tags": ["project"], "summary": "Get a published page", "parameters": [{"type": "string", "name": "projectId", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/project/{projectId}": {"delete": {"security": [{"Bearer": []}], "tags": ["project"], "summary": "Delete a project", "parameters": [{"type": "string", "name": "projectId", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/project/{projectId}/events": {"get": {"security": [{"Bearer": []}], "tags": ["project"], "summary": "Project event stream (websocket)", "parameters": [{"type": "string", "name": "projectId", "in": "path", "required": true}, {"type": "string", "name": "token", "in": "query"}], "responses": {"101": {"description": "Switching Protocols"}}}},
        "/admin/users": {"get": {"security": [{"Bearer": []}], "tags": ["admin"], "summary": "List all users", "responses": {"200": {"description": "OK"}}}},
        "/admin/users/{id}": {"patch": {"security": [{"Bearer": []}], "tags": ["admin"], "summary": "Update a user", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/admin/users/{id}/credits": {"post": {"security": [{"Bearer": []}], "tags": ["admin"], "summary": "Adjust a user's credits", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/admin/transactions": {"get": {"security": [{"Bearer": []}], "tags": ["admin"], "summary": "List transactions", "responses": {"200": {"description": "OK"}}}},
        "/admin/transactions/export": {"get": {"security": [{"Bearer": []}], "tags": ["admin"], "summary": "Export transactions", "produces": ["text/csv"], "responses": {"200": {"description": "CSV content"}}}},
        "/admin/prompts": {
            "get": {"security": [{"Bearer": []}], "tags": ["admin_prompts"], "summary": "List prompt overrides", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"Bearer": []}], "tags": ["admin_prompts"], "summary": "Override a system prompt", "responses": {"201": {"description": "Created"}}}
        },
        "/admin/prompts/{code}": {
            "get": {"security": [{"Bearer": []}], "tags": ["admin_prompts"], "summary": "Get the prompt in effect", "parameters": [{"type": "string", "name": "code", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}},
            "put": {"security": [{"Bearer": []}], "tags": ["admin_prompts"], "summary": "Update a prompt override", "parameters": [{"type": "string", "name": "code", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}},
            "delete": {"security": [{"Bearer": []}], "tags": ["admin_prompts"], "summary": "Delete a prompt override", "parameters": [{"type": "string", "name": "code", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        }
    },
    "securityDefinitions": {
        "Bearer": {
            "description": "Type \"Bearer\" followed by a space and the JWT.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "sitesmith-backend API",
	Description:      "AI website builder: prompt-driven generation, revisions, versions and credits.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
