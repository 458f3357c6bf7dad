// Package docs guarda a especificação Swagger servida em /swagger/*.
//
// O template é mantido à mão junto com as anotações dos handlers; docs_test.go
// confere que cada rota montada em cmd/api está descrita e que toda referência
// aponta para uma definição existente.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "Will Cristo",
            "url": "https://linkedin.com/in/willjrcristo",
            "email": "willjrcristo@gmail.com"
        },
        "license": {
            "name": "Apache 2.0",
            "url": "http://www.apache.org/licenses/LICENSE-2.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/admin-track": {
            "get": {
                "description": "Sem track_id lista todas as faixas; com track_id lista as versões daquela faixa",
                "produces": ["application/json"],
                "tags": ["catalogo"],
                "summary": "Lista faixas ou versões alternativas",
                "parameters": [
                    {"type": "string", "description": "Chave de administração", "name": "X-Admin-Key", "in": "header", "required": true},
                    {"type": "string", "description": "ID da faixa", "name": "track_id", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.Track"}}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["catalogo"],
                "summary": "Cria uma faixa ou versão alternativa",
                "parameters": [
                    {"type": "string", "description": "Chave de administração", "name": "X-Admin-Key", "in": "header", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Track"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            },
            "delete": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["catalogo"],
                "summary": "Remove uma linha do catálogo",
                "parameters": [
                    {"type": "string", "description": "Chave de administração", "name": "X-Admin-Key", "in": "header", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "boolean"}}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            },
            "patch": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["catalogo"],
                "summary": "Atualiza parcialmente uma linha do catálogo",
                "parameters": [
                    {"type": "string", "description": "Chave de administração", "name": "X-Admin-Key", "in": "header", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Track"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/api/create-checkout-session": {
            "post": {
                "description": "Assinatura (planType/billingPeriod) ou compra avulsa de faixas (items)",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["assinaturas"],
                "summary": "Cria uma sessão de checkout na Stripe",
                "parameters": [
                    {"description": "Dados do checkout", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/service.CheckoutRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.CheckoutSession"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/api/create-portal-session": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["assinaturas"],
                "summary": "Abre o portal do cliente da Stripe",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/api/download": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Só para assinantes ativos; a URL expira em poucos minutos",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["downloads"],
                "summary": "Gera uma URL assinada para download",
                "parameters": [
                    {"description": "Arquivo no bucket", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.downloadRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.DownloadLink"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "403": {"description": "Forbidden", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/api/stripe-webhook": {
            "post": {
                "description": "Verifica a assinatura do evento e reconcilia o estado da assinatura do perfil",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["stripe"],
                "summary": "Recebe eventos da Stripe",
                "parameters": [
                    {"type": "string", "description": "Assinatura do evento", "name": "Stripe-Signature", "in": "header", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "boolean"}}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        }
    },
    "definitions": {
        "domain.Track": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "title": {"type": "string"},
                "artist": {"type": "string"},
                "genre": {"type": "string"},
                "bpm": {"type": "integer"},
                "duration": {"type": "string"},
                "stream_url": {"type": "string"},
                "artwork_url": {"type": "string"},
                "moods": {"type": "array", "items": {"type": "string"}},
                "use_cases": {"type": "array", "items": {"type": "string"}},
                "similar_artists": {"type": "array", "items": {"type": "string"}},
                "energy": {"type": "string"},
                "best_moments": {"type": "string"},
                "is_active": {"type": "boolean"},
                "sort_order": {"type": "integer"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "http.downloadRequest": {
            "type": "object",
            "properties": {
                "filePath": {"type": "string"}
            }
        },
        "service.CheckoutItem": {
            "type": "object",
            "properties": {
                "trackId": {"type": "string"},
                "trackTitle": {"type": "string"},
                "license": {"type": "string", "enum": ["individual", "business"]},
                "price": {"type": "number"}
            }
        },
        "service.CheckoutRequest": {
            "type": "object",
            "properties": {
                "mode": {"type": "string"},
                "planType": {"type": "string", "enum": ["individual", "business"]},
                "billingPeriod": {"type": "string", "enum": ["monthly", "annual"]},
                "items": {"type": "array", "items": {"$ref": "#/definitions/service.CheckoutItem"}}
            }
        },
        "service.CheckoutSession": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "url": {"type": "string"}
            }
        },
        "service.DownloadLink": {
            "type": "object",
            "properties": {
                "downloadUrl": {"type": "string"},
                "expiresIn": {"type": "integer"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
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
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Storefront Billing API",
	Description:      "Webhooks da Stripe, checkout, portal do cliente, downloads assinados e administração do catálogo.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
