package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Tutorlane Scheduling API",
        "description": "Availability, booking and recurring lesson scheduling service",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Availability", "description": "Slot aggregation and tutor ranking"},
        {"name": "Lessons", "description": "Booking, cancellation and recurring series"},
        {"name": "Tutors", "description": "Tutor directory, rules and schedule export"},
        {"name": "Subjects", "description": "Subject catalog"}
    ],
    "paths": {
        "/availability/slots": {
            "get": {
                "tags": ["Availability"],
                "summary": "List bookable slots for a subject on a date",
                "parameters": [
                    {"name": "subjectId", "in": "query", "type": "string", "required": true},
                    {"name": "date", "in": "query", "type": "string", "required": true, "description": "Local date, YYYY-MM-DD"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid subject or date", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/availability/tutors": {
            "get": {
                "tags": ["Availability"],
                "summary": "Rank tutors for one requested slot",
                "parameters": [
                    {"name": "subjectId", "in": "query", "type": "string", "required": true},
                    {"name": "date", "in": "query", "type": "string", "required": true},
                    {"name": "time", "in": "query", "type": "string", "required": true, "description": "Requested slot start, HH:MM"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/lessons": {
            "post": {
                "tags": ["Lessons"],
                "summary": "Book a lesson",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BookLessonRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Slot no longer available", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/lessons/{id}/cancel": {
            "post": {
                "tags": ["Lessons"],
                "summary": "Cancel a lesson",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Lesson not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/lessons/{id}/recurring": {
            "post": {
                "tags": ["Lessons"],
                "summary": "Turn a lesson into a recurring series",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateSeriesRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/recurring/extend": {
            "post": {
                "tags": ["Lessons"],
                "summary": "Extend every recurring series whose window is due",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/tutors": {
            "get": {
                "tags": ["Tutors"],
                "summary": "List tutors",
                "parameters": [
                    {"name": "subjectId", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "sort", "in": "query", "type": "string"},
                    {"name": "order", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/tutors/{id}": {
            "get": {
                "tags": ["Tutors"],
                "summary": "Get tutor by id",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Tutor not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/tutors/{id}/rules": {
            "get": {
                "tags": ["Tutors"],
                "summary": "List a tutor's weekly availability rules",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Tutors"],
                "summary": "Create a weekly availability rule",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateRuleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid rule", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/tutors/{id}/rules/{ruleId}": {
            "delete": {
                "tags": ["Tutors"],
                "summary": "Delete a weekly availability rule",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "ruleId", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/tutors/{id}/schedule/export": {
            "get": {
                "tags": ["Tutors"],
                "summary": "Export a tutor's upcoming schedule",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "format", "in": "query", "type": "string", "description": "csv or pdf (default csv)"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/subjects": {
            "get": {
                "tags": ["Subjects"],
                "summary": "List subjects",
                "parameters": [
                    {"name": "level", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/subjects/{id}": {
            "get": {
                "tags": ["Subjects"],
                "summary": "Get subject by id",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Subject not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "BookLessonRequest": {
            "type": "object",
            "required": ["tutor_id", "subject_id", "student_ids", "date", "time"],
            "properties": {
                "tutor_id": {"type": "string"},
                "subject_id": {"type": "string"},
                "student_ids": {"type": "array", "items": {"type": "string"}},
                "date": {"type": "string", "example": "2025-06-02"},
                "time": {"type": "string", "example": "10:00"}
            }
        },
        "CreateSeriesRequest": {
            "type": "object",
            "required": ["interval"],
            "properties": {
                "interval": {"type": "string", "enum": ["daily", "weekly", "biweekly", "monthly"]}
            }
        },
        "CreateRuleRequest": {
            "type": "object",
            "required": ["day_of_week", "start_time", "end_time"],
            "properties": {
                "day_of_week": {"type": "string", "example": "monday"},
                "start_time": {"type": "string", "example": "09:00"},
                "end_time": {"type": "string", "example": "17:00"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
