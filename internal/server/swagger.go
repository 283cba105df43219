package server

//go:generate swag init -g internal/server/server.go -o docs/swagger

// @title Paylens API
// @version 0.1
// @description Interactive documentation for the Paylens merchant readiness API surface.
// @contact.name Paylens Maintainers
// @contact.url https://github.com/paylens/paylens
// @BasePath /
