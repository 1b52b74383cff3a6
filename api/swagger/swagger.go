package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Exam Scheduler API",
        "description": "Exam scheduling engine: batch placement, manual assignment and conflict audits.",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "in": "header",
            "name": "Authorization"
        }
    },
    "tags": [
        {
            "name": "Scheduler",
            "description": "Batch runs, manual assignment and conflicts"
        },
        {
            "name": "TimeSlots",
            "description": "Schedulable capacity units"
        },
        {
            "name": "Catalog",
            "description": "Rooms, proctors and exams"
        },
        {
            "name": "Dashboard",
            "description": "Occupancy and load statistics"
        }
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Liveness",
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness of Postgres and Redis",
                "responses": {
                    "200": {
                        "description": "Ready"
                    },
                    "503": {
                        "description": "A dependency is unreachable"
                    }
                }
            }
        },
        "/metrics": {
            "get": {
                "summary": "Prometheus metrics",
                "produces": [
                    "text/plain"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/api/v1/schedule": {
            "post": {
                "tags": [
                    "Scheduler"
                ],
                "summary": "Run the batch scheduling engine",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/ScheduleRunRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Run finished",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "A run is in progress or the schedule changed underneath",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "408": {
                        "description": "Run cancelled",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/schedule/runs": {
            "get": {
                "tags": [
                    "Scheduler"
                ],
                "summary": "List recent scheduling runs",
                "parameters": [
                    {
                        "name": "limit",
                        "in": "query",
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/manual-schedule": {
            "post": {
                "tags": [
                    "Scheduler"
                ],
                "summary": "Commit a hand-picked assignment",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/ManualScheduleRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Committed",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "422": {
                        "description": "Rejected with violations",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Unknown exam, room or slot",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/conflicts": {
            "get": {
                "tags": [
                    "Scheduler"
                ],
                "summary": "List conflicts in the committed schedule",
                "parameters": [
                    {
                        "name": "kind",
                        "in": "query",
                        "type": "string",
                        "enum": [
                            "room",
                            "proctor",
                            "department",
                            "level"
                        ]
                    },
                    {
                        "name": "severity",
                        "in": "query",
                        "type": "string",
                        "enum": [
                            "high",
                            "medium",
                            "low"
                        ]
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/timeslots": {
            "get": {
                "tags": [
                    "TimeSlots"
                ],
                "summary": "List time slots",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/timeslots/generate": {
            "post": {
                "tags": [
                    "TimeSlots"
                ],
                "summary": "Bulk-generate time slots",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/GenerateTimeSlotsRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/rooms": {
            "get": {
                "tags": [
                    "Catalog"
                ],
                "summary": "List rooms",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "post": {
                "tags": [
                    "Catalog"
                ],
                "summary": "Create room",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/CreateRoomRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Duplicate name",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/rooms/{id}": {
            "get": {
                "tags": [
                    "Catalog"
                ],
                "summary": "Get room",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/proctors": {
            "get": {
                "tags": [
                    "Catalog"
                ],
                "summary": "List proctors",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "post": {
                "tags": [
                    "Catalog"
                ],
                "summary": "Create proctor",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/CreateProctorRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/proctors/{id}": {
            "get": {
                "tags": [
                    "Catalog"
                ],
                "summary": "Get proctor",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/exams": {
            "get": {
                "tags": [
                    "Catalog"
                ],
                "summary": "List exams",
                "parameters": [
                    {
                        "name": "level",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "department",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "date",
                        "in": "query",
                        "type": "string",
                        "format": "date"
                    },
                    {
                        "name": "page",
                        "in": "query",
                        "type": "integer"
                    },
                    {
                        "name": "pageSize",
                        "in": "query",
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "post": {
                "tags": [
                    "Catalog"
                ],
                "summary": "Create exam",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/CreateExamRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/exams/{id}": {
            "get": {
                "tags": [
                    "Catalog"
                ],
                "summary": "Get exam",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "delete": {
                "tags": [
                    "Catalog"
                ],
                "summary": "Delete exam and release its slot",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "204": {
                        "description": "Deleted"
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/exams/{id}/unschedule": {
            "post": {
                "tags": [
                    "Catalog"
                ],
                "summary": "Clear an exam's assignment",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/stats": {
            "get": {
                "tags": [
                    "Dashboard"
                ],
                "summary": "Dashboard statistics",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        }
    },
    "definitions": {
        "ScheduleRunRequest": {
            "type": "object",
            "properties": {
                "examIds": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                }
            }
        },
        "ManualScheduleRequest": {
            "type": "object",
            "properties": {
                "examId": {
                    "type": "string"
                },
                "roomId": {
                    "type": "string"
                },
                "timeSlotId": {
                    "type": "string"
                },
                "proctorIds": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                }
            },
            "required": [
                "examId",
                "roomId",
                "timeSlotId"
            ]
        },
        "GenerateTimeSlotsRequest": {
            "type": "object",
            "properties": {
                "startDate": {
                    "type": "string",
                    "format": "date"
                },
                "days": {
                    "type": "integer"
                },
                "dayStart": {
                    "type": "string",
                    "example": "08:00"
                },
                "dayEnd": {
                    "type": "string",
                    "example": "18:00"
                },
                "slotDuration": {
                    "type": "string",
                    "example": "2h"
                },
                "step": {
                    "type": "string"
                },
                "roomIds": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                }
            },
            "required": [
                "startDate"
            ]
        },
        "CreateRoomRequest": {
            "type": "object",
            "properties": {
                "name": {
                    "type": "string"
                },
                "capacity": {
                    "type": "integer"
                }
            },
            "required": [
                "name",
                "capacity"
            ]
        },
        "AvailabilityWindow": {
            "type": "object",
            "properties": {
                "start": {
                    "type": "string",
                    "format": "date-time"
                },
                "end": {
                    "type": "string",
                    "format": "date-time"
                }
            }
        },
        "CreateProctorRequest": {
            "type": "object",
            "properties": {
                "name": {
                    "type": "string"
                },
                "department": {
                    "type": "string"
                },
                "availability": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/AvailabilityWindow"
                    }
                }
            },
            "required": [
                "name",
                "department"
            ]
        },
        "CreateExamRequest": {
            "type": "object",
            "properties": {
                "name": {
                    "type": "string"
                },
                "level": {
                    "type": "string",
                    "enum": [
                        "L1",
                        "L2",
                        "L3",
                        "M1",
                        "M2"
                    ]
                },
                "department": {
                    "type": "string"
                },
                "duration": {
                    "type": "string",
                    "example": "2h30m"
                },
                "participants": {
                    "type": "integer"
                }
            },
            "required": [
                "name",
                "level",
                "department",
                "duration"
            ]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {
                    "type": "integer"
                },
                "page_size": {
                    "type": "integer"
                },
                "total_count": {
                    "type": "integer"
                }
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                },
                "status": {
                    "type": "integer"
                }
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {
                    "type": "object"
                },
                "error": {
                    "$ref": "#/definitions/APIError"
                },
                "pagination": {
                    "$ref": "#/definitions/Pagination"
                },
                "meta": {
                    "type": "object"
                }
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
