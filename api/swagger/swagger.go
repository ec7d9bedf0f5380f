package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Scholarship API",
        "description": "Scholarship application workflow: wallet sessions, staged voting and pooled disbursement",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Session", "description": "Wallet sign-in and session lifecycle"},
        {"name": "Applications", "description": "Submission, voting and disbursement"},
        {"name": "Identity", "description": "Student registration, roles and ownership"},
        {"name": "Treasury", "description": "Scholarship pool funding"},
        {"name": "Documents", "description": "Supporting document storage and verification"},
        {"name": "Schemes", "description": "Scholarship scheme catalogue"},
        {"name": "Operations", "description": "Pending mutation tracking"}
    ],
    "paths": {
        "/auth/challenge": {
            "post": {
                "tags": ["Session"],
                "summary": "Issue a sign-in challenge for a wallet",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ChallengeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid address", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Session"],
                "summary": "Exchange a signed challenge for a session token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Signature rejected", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/session": {
            "get": {
                "tags": ["Session"],
                "summary": "Current session and capability",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Session"],
                "summary": "End the session",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "Logged out"}
                }
            }
        },
        "/students/register": {
            "post": {
                "tags": ["Identity"],
                "summary": "Register the caller as a student",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Confirmed", "schema": {"$ref": "#/definitions/MutationEnvelope"}},
                    "202": {"description": "Pending", "schema": {"$ref": "#/definitions/MutationEnvelope"}},
                    "409": {"description": "Already registered", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/applications": {
            "get": {
                "tags": ["Applications"],
                "summary": "List every application",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Applications"],
                "summary": "Submit an application",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitApplicationRequest"}}
                ],
                "responses": {
                    "201": {"description": "Confirmed", "schema": {"$ref": "#/definitions/MutationEnvelope"}},
                    "202": {"description": "Pending", "schema": {"$ref": "#/definitions/MutationEnvelope"}},
                    "403": {"description": "Caller is not a student", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/applications/mine": {
            "get": {
                "tags": ["Applications"],
                "summary": "Applications submitted by the caller",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/applications/export": {
            "get": {
                "tags": ["Applications"],
                "summary": "Export the application register",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "status", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "404": {"description": "Exports disabled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/applications/status/{status}": {
            "get": {
                "tags": ["Applications"],
                "summary": "Applications in a workflow status",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "status", "in": "path", "required": true, "type": "string", "enum": ["APPLIED", "SAG_VERIFIED", "ADMIN_APPROVED", "DISBURSED"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/applications/{id}": {
            "get": {
                "tags": ["Applications"],
                "summary": "Get an application",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/applications/{id}/votes/{stage}": {
            "get": {
                "tags": ["Applications"],
                "summary": "Voters recorded for a stage",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "stage", "in": "path", "required": true, "type": "string", "enum": ["SAG", "ADMIN"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/applications/{id}/votes/{stage}/{address}": {
            "get": {
                "tags": ["Applications"],
                "summary": "Whether an address voted at a stage",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "stage", "in": "path", "required": true, "type": "string", "enum": ["SAG", "ADMIN"]},
                    {"name": "address", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/applications/{id}/documents": {
            "get": {
                "tags": ["Applications"],
                "summary": "Resolved document links for an application",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/applications/{id}/verify": {
            "post": {
                "tags": ["Applications"],
                "summary": "Cast a SAG bureau vote",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Confirmed", "schema": {"$ref": "#/definitions/MutationEnvelope"}},
                    "202": {"description": "Pending", "schema": {"$ref": "#/definitions/MutationEnvelope"}},
                    "409": {"description": "Duplicate vote or wrong status", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/applications/{id}/approve": {
            "post": {
                "tags": ["Applications"],
                "summary": "Cast an admin vote",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Confirmed", "schema": {"$ref": "#/definitions/MutationEnvelope"}},
                    "202": {"description": "Pending", "schema": {"$ref": "#/definitions/MutationEnvelope"}}
                }
            }
        },
        "/applications/{id}/disburse": {
            "post": {
                "tags": ["Applications"],
                "summary": "Pay the standard amount from the pool",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Confirmed", "schema": {"$ref": "#/definitions/MutationEnvelope"}},
                    "202": {"description": "Pending", "schema": {"$ref": "#/definitions/MutationEnvelope"}},
                    "409": {"description": "Insufficient pool balance", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/applications/{id}/verifications": {
            "get": {
                "tags": ["Documents"],
                "summary": "Verification verdicts for an application",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Documents"],
                "summary": "Queue verification of every application document",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dashboard": {
            "get": {
                "tags": ["Applications"],
                "summary": "Aggregate workflow counters",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/roles": {
            "get": {
                "tags": ["Identity"],
                "summary": "List role assignments",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/roles/{address}": {
            "get": {
                "tags": ["Identity"],
                "summary": "Role held by an address",
                "parameters": [
                    {"name": "address", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Identity"],
                "summary": "Assign a role",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "address", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignRoleRequest"}}
                ],
                "responses": {
                    "200": {"description": "Confirmed", "schema": {"$ref": "#/definitions/MutationEnvelope"}},
                    "202": {"description": "Pending", "schema": {"$ref": "#/definitions/MutationEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Identity"],
                "summary": "Revoke a role",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "address", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Confirmed", "schema": {"$ref": "#/definitions/MutationEnvelope"}},
                    "202": {"description": "Pending", "schema": {"$ref": "#/definitions/MutationEnvelope"}}
                }
            }
        },
        "/owner": {
            "get": {
                "tags": ["Identity"],
                "summary": "Current owner address",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/owner/transfer": {
            "post": {
                "tags": ["Identity"],
                "summary": "Transfer ownership",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TransferOwnershipRequest"}}
                ],
                "responses": {
                    "200": {"description": "Confirmed", "schema": {"$ref": "#/definitions/MutationEnvelope"}},
                    "202": {"description": "Pending", "schema": {"$ref": "#/definitions/MutationEnvelope"}}
                }
            }
        },
        "/pool": {
            "get": {
                "tags": ["Treasury"],
                "summary": "Pool balance",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/pool/deposits": {
            "post": {
                "tags": ["Treasury"],
                "summary": "Deposit into the pool",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DepositRequest"}}
                ],
                "responses": {
                    "201": {"description": "Confirmed", "schema": {"$ref": "#/definitions/MutationEnvelope"}},
                    "202": {"description": "Pending", "schema": {"$ref": "#/definitions/MutationEnvelope"}}
                }
            }
        },
        "/pool/ledger": {
            "get": {
                "tags": ["Treasury"],
                "summary": "Pool ledger entries",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/operations/{id}": {
            "get": {
                "tags": ["Operations"],
                "summary": "Status of a submitted operation",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/documents": {
            "post": {
                "tags": ["Documents"],
                "summary": "Upload a supporting document",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Stored", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "413": {"description": "Too large", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/documents/verify": {
            "post": {
                "tags": ["Documents"],
                "summary": "Check a document with the verifier",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "200": {"description": "Verdict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Verifier unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/documents/{id}": {
            "get": {
                "tags": ["Documents"],
                "summary": "Download a locally stored document with a signed token",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "403": {"description": "Invalid token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/assistant/messages": {
            "post": {
                "tags": ["Documents"],
                "summary": "Relay a message to the assistant",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssistantMessageRequest"}}
                ],
                "responses": {
                    "200": {"description": "Reply", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schemes": {
            "get": {
                "tags": ["Schemes"],
                "summary": "List schemes",
                "parameters": [
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "q", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Schemes"],
                "summary": "Create a scheme",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateSchemeRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schemes/registrations/mine": {
            "get": {
                "tags": ["Schemes"],
                "summary": "Scheme registrations of the caller",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schemes/{id}": {
            "get": {
                "tags": ["Schemes"],
                "summary": "Get a scheme",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Schemes"],
                "summary": "Deactivate a scheme",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deactivated"}
                }
            }
        },
        "/schemes/{id}/register": {
            "post": {
                "tags": ["Schemes"],
                "summary": "Register for a scheme",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Registered", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Closed, full or already registered", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "ChallengeRequest": {
            "type": "object",
            "required": ["address", "chainId"],
            "properties": {
                "address": {"type": "string"},
                "chainId": {"type": "integer"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": ["address", "signature", "chainId"],
            "properties": {
                "address": {"type": "string"},
                "signature": {"type": "string"},
                "chainId": {"type": "integer"}
            }
        },
        "SubmitApplicationRequest": {
            "type": "object",
            "required": ["name", "email", "phone", "aadharNumber", "income", "documents"],
            "properties": {
                "name": {"type": "string"},
                "email": {"type": "string"},
                "phone": {"type": "string"},
                "aadharNumber": {"type": "string"},
                "income": {"type": "string"},
                "documents": {"type": "array", "items": {"type": "string"}}
            }
        },
        "AssignRoleRequest": {
            "type": "object",
            "required": ["role"],
            "properties": {
                "role": {"type": "string", "enum": ["STUDENT", "SAG_BUREAU", "ADMIN", "FINANCE_BUREAU"]}
            }
        },
        "TransferOwnershipRequest": {
            "type": "object",
            "required": ["newOwner"],
            "properties": {
                "newOwner": {"type": "string"}
            }
        },
        "DepositRequest": {
            "type": "object",
            "required": ["amount"],
            "properties": {
                "amount": {"type": "integer"}
            }
        },
        "AssistantMessageRequest": {
            "type": "object",
            "required": ["message"],
            "properties": {
                "message": {"type": "string"}
            }
        },
        "CreateSchemeRequest": {
            "type": "object",
            "required": ["name", "totalSlots", "startDate", "endDate"],
            "properties": {
                "name": {"type": "string"},
                "description": {"type": "string"},
                "eligibility": {"type": "string"},
                "awardAmount": {"type": "integer"},
                "totalSlots": {"type": "integer"},
                "startDate": {"type": "string", "format": "date-time"},
                "endDate": {"type": "string", "format": "date-time"},
                "requiredDocuments": {"type": "array", "items": {"type": "string"}}
            }
        },
        "Operation": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "kind": {"type": "string"},
                "status": {"type": "string", "enum": ["PENDING", "CONFIRMED", "FAILED", "CANCELLED"]},
                "actor": {"type": "string"},
                "applicationId": {"type": "integer"},
                "errorCode": {"type": "string"},
                "errorMessage": {"type": "string"},
                "createdAt": {"type": "string", "format": "date-time"},
                "finishedAt": {"type": "string", "format": "date-time"}
            }
        },
        "MutationEnvelope": {
            "type": "object",
            "properties": {
                "data": {
                    "type": "object",
                    "properties": {
                        "record": {"type": "object"},
                        "operation": {"$ref": "#/definitions/Operation"}
                    }
                },
                "meta": {"type": "object"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "hint": {"type": "string"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
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
