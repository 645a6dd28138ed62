package server

import (
	"github.com/swaggo/swag"

	"github.com/raysh454/harstyle/internal/model"
)

//go:generate swag init -g internal/server/server.go -o internal/server --outputTypes go

// @title harstyle API
// @version 0.4.0
// @description Lints the styles of captured pages and accumulates results per group.
// @BasePath /

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
        "/healthz": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.HealthResponse"}}
                }
            }
        },
        "/messages": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["host"],
                "summary": "Process one host message",
                "parameters": [
                    {"description": "Host message", "name": "message", "in": "body", "required": true, "schema": {"$ref": "#/definitions/plugin.Message"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/plugin.Message"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/server.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        },
        "/pages": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["pages"],
                "summary": "Analyze one HAR capture",
                "parameters": [
                    {"type": "string", "description": "Page URL", "name": "url", "in": "query", "required": true},
                    {"type": "string", "description": "Group key, defaults to the registrable domain of url", "name": "group", "in": "query"},
                    {"description": "HAR document, bare or inside {\"log\": ...}", "name": "capture", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/model.PageResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/server.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        },
        "/summarize": {
            "post": {
                "produces": ["application/json"],
                "tags": ["host"],
                "summary": "Summarize every group",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/plugin.Message"}}}
                }
            }
        },
        "/groups": {
            "get": {
                "produces": ["application/json"],
                "tags": ["groups"],
                "summary": "List group keys",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.GroupsResponse"}}
                }
            }
        },
        "/groups/{group}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["groups"],
                "summary": "Accumulated state of one group",
                "parameters": [{"type": "string", "description": "Group key", "name": "group", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        },
        "/groups/{group}/report": {
            "get": {
                "produces": ["application/json"],
                "tags": ["groups"],
                "summary": "Per-page counts, per-rule totals and style drift of one group",
                "parameters": [{"type": "string", "description": "Group key", "name": "group", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        },
        "/groups/{group}/issues": {
            "get": {
                "produces": ["application/json"],
                "tags": ["groups"],
                "summary": "Flat issue lists of every page of one group",
                "parameters": [{"type": "string", "description": "Group key", "name": "group", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/server.PageIssues"}}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "model.Diagnostic": {
            "type": "object",
            "properties": {
                "url": {"type": "string"},
                "rule": {"type": "string"},
                "category": {"type": "string"},
                "severity": {"type": "string"},
                "text": {"type": "string"},
                "line": {"type": "integer"},
                "column": {"type": "integer"}
            }
        },
        "model.PageResult": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "url": {"type": "string"},
                "group": {"type": "string"},
                "version": {"type": "string"},
                "dependencies": {"type": "object", "additionalProperties": {"type": "string"}},
                "analyzedData": {"type": "object"},
                "knowledgeData": {"type": "object"}
            }
        },
        "plugin.Message": {
            "type": "object",
            "properties": {
                "type": {"type": "string", "example": "browsertime.har"},
                "url": {"type": "string"},
                "group": {"type": "string"},
                "data": {"type": "object"}
            }
        },
        "server.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string", "example": "group not found"}}
        },
        "server.GroupsResponse": {
            "type": "object",
            "properties": {"groups": {"type": "array", "items": {"type": "string"}}}
        },
        "server.HealthResponse": {
            "type": "object",
            "properties": {"status": {"type": "string", "example": "ok"}}
        },
        "server.PageIssues": {
            "type": "object",
            "properties": {
                "url": {"type": "string"},
                "issues": {"type": "array", "items": {"$ref": "#/definitions/model.Diagnostic"}},
                "resolved": {"type": "array", "items": {"type": "string"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          model.ToolVersion,
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "harstyle API",
	Description:      "Lints the styles of captured pages and accumulates results per group.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
