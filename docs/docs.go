// Package docs registers the OpenAPI document for the API with swag. It is
// maintained by hand alongside the handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "API Support"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/login": {
            "post": {
                "description": "Authenticate and return a JWT. Anonymous session likes are merged into the account.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "User login",
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "description": "Revoke the bearer token and reset the browser session.",
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Logout",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/auth/signup": {
            "post": {
                "description": "Register a new account. Likes collected anonymously are kept.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "User signup",
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/categories": {
            "get": {
                "description": "Counts only products available in the caller's city.",
                "produces": ["application/json"],
                "tags": ["categories"],
                "summary": "Categories with product counts",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/categories/{slug}/products": {
            "get": {
                "produces": ["application/json"],
                "tags": ["categories"],
                "summary": "Browse a category",
                "parameters": [
                    {"type": "string", "description": "Category slug", "name": "slug", "in": "path", "required": true},
                    {"type": "string", "description": "Page number", "name": "page", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/cities": {
            "get": {
                "produces": ["application/json"],
                "tags": ["cities"],
                "summary": "Cities",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/cities/{id}/select": {
            "post": {
                "produces": ["application/json"],
                "tags": ["cities"],
                "summary": "Select the browsing city",
                "parameters": [
                    {"type": "integer", "description": "City ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/likes": {
            "get": {
                "produces": ["application/json"],
                "tags": ["likes"],
                "summary": "Liked products",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/products": {
            "get": {
                "description": "Products available in the caller's city, filtered, searched and shuffled per session.",
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Browse products",
                "parameters": [
                    {"type": "string", "description": "Category ID", "name": "category", "in": "query"},
                    {"type": "string", "description": "Seller ID", "name": "seller", "in": "query"},
                    {"type": "string", "description": "Minimum price", "name": "price_min", "in": "query"},
                    {"type": "string", "description": "Maximum price", "name": "price_max", "in": "query"},
                    {"type": "string", "description": "Search text", "name": "search", "in": "query"},
                    {"type": "string", "description": "Page number", "name": "page", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/products/{id}/like": {
            "post": {
                "description": "Anonymous callers keep likes in their session until they log in.",
                "produces": ["application/json"],
                "tags": ["likes"],
                "summary": "Like or unlike a product",
                "parameters": [
                    {"type": "integer", "description": "Product ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/products/{slug}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Product detail",
                "parameters": [
                    {"type": "string", "description": "Product slug", "name": "slug", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/seller/products": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["seller"],
                "summary": "Own products",
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["seller"],
                "summary": "Create a product",
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/seller/products/{slug}": {
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["seller"],
                "summary": "Update a product",
                "parameters": [
                    {"type": "string", "description": "Product slug", "name": "slug", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["seller"],
                "summary": "Delete a product",
                "parameters": [
                    {"type": "string", "description": "Product slug", "name": "slug", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/sellers": {
            "get": {
                "produces": ["application/json"],
                "tags": ["sellers"],
                "summary": "Verified sellers",
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "models.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "details": {"type": "string"},
                "error": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
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
	BasePath:         "/api",
	Schemes:          []string{"http", "https"},
	Title:            "Shop Aggregator API",
	Description:      "Product discovery across local shops: city availability, filters, search, shuffled paging and likes",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
