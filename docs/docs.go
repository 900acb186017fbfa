// Package docs registers the swagger document served under /swagger.
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
        "/downloads": {
            "get": {
                "produces": ["application/json"],
                "tags": ["downloads"],
                "summary": "List download tasks",
                "parameters": [
                    {"type": "string", "description": "comma separated statuses", "name": "status", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/dto.TaskResponseDTO"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["downloads"],
                "summary": "Submit a download",
                "parameters": [
                    {"description": "download request", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.SubmitDownloadRequestDTO"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/dto.TaskResponseDTO"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/downloads/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["downloads"],
                "summary": "Get a download task",
                "parameters": [{"type": "string", "description": "task id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.TaskResponseDTO"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["downloads"],
                "summary": "Cancel a download and delete its files",
                "parameters": [{"type": "string", "description": "task id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.ActionResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/downloads/{id}/segments": {
            "get": {
                "produces": ["application/json"],
                "tags": ["downloads"],
                "summary": "List segments of a task",
                "parameters": [
                    {"type": "string", "description": "task id", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "all, pending, failed, completed, work", "name": "filter", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/dto.SegmentResponseDTO"}}}
                }
            }
        },
        "/downloads/{id}/events": {
            "get": {
                "produces": ["text/event-stream"],
                "tags": ["downloads"],
                "summary": "Stream progress events",
                "parameters": [{"type": "string", "description": "task id", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/downloads/{id}/pause": {
            "post": {
                "produces": ["application/json"],
                "tags": ["downloads"],
                "summary": "Pause a download",
                "parameters": [{"type": "string", "description": "task id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.ActionResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/downloads/{id}/resume": {
            "post": {
                "produces": ["application/json"],
                "tags": ["downloads"],
                "summary": "Resume a paused or failed download",
                "parameters": [{"type": "string", "description": "task id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.ActionResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/probe": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["downloads"],
                "summary": "List the variants of a playlist",
                "parameters": [
                    {"description": "probe request", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.ProbeRequestDTO"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/m3u8.VariantPlaylist"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/settings": {
            "get": {
                "produces": ["application/json"],
                "tags": ["settings"],
                "summary": "Get download settings",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.SettingsDTO"}}}
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["settings"],
                "summary": "Update download settings",
                "parameters": [
                    {"description": "settings", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.SettingsDTO"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.SettingsDTO"}}}
            }
        },
        "/maintenance/sweep": {
            "post": {
                "produces": ["application/json"],
                "tags": ["maintenance"],
                "summary": "Remove stale partial segment files",
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "dto.SubmitDownloadRequestDTO": {
            "type": "object",
            "properties": {
                "url": {"type": "string"},
                "title": {"type": "string"},
                "episode_title": {"type": "string"},
                "episode": {"type": "integer"},
                "content_id": {"type": "string"},
                "quality": {"type": "string"},
                "audio_language": {"type": "string"},
                "referer": {"type": "string"},
                "cookie": {"type": "string"}
            }
        },
        "dto.ProbeRequestDTO": {
            "type": "object",
            "properties": {
                "url": {"type": "string"},
                "referer": {"type": "string"},
                "cookie": {"type": "string"}
            }
        },
        "m3u8.VariantPlaylist": {
            "type": "object",
            "properties": {
                "url": {"type": "string"},
                "videos": {"type": "array", "items": {"type": "object"}},
                "audios": {"type": "array", "items": {"type": "object"}}
            }
        },
        "dto.TaskResponseDTO": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "title": {"type": "string"},
                "episode": {"type": "integer"},
                "quality": {"type": "string"},
                "status": {"type": "string"},
                "progress": {"type": "number"},
                "total_segments": {"type": "integer"},
                "downloaded_segments": {"type": "integer"},
                "downloaded_bytes": {"type": "integer"},
                "dest_dir": {"type": "string"},
                "error_message": {"type": "string"}
            }
        },
        "dto.SegmentResponseDTO": {
            "type": "object",
            "properties": {
                "index": {"type": "integer"},
                "status": {"type": "string"},
                "file_size": {"type": "integer"},
                "retry_count": {"type": "integer"}
            }
        },
        "dto.SettingsDTO": {
            "type": "object",
            "properties": {
                "max_parallel_downloads": {"type": "integer"},
                "max_parallel_segments": {"type": "integer"},
                "wifi_only": {"type": "boolean"},
                "auto_resume": {"type": "boolean"}
            }
        },
        "dto.ActionResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "id": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "dto.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "message": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "HLS Downloader API",
	Description:      "Resumable HLS download engine.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
