// Package models contains GORM persistence models that map to database tables.
// Domain entities stay free of ORM tags; each model has ToDomain and FromDomain mappers
// and repositories in the parent package work exclusively with these types.
package models
