package domain

import (
	"errors"
	"strings"
	"time"
)

type Project struct {
	ID         int64
	Identifier string
	Name       string
	ParentID   *int64
	CreatedAt  time.Time
}

// NewProject creates a top-level project
func NewProject(identifier, name string) *Project {
	return &Project{
		Identifier: strings.TrimSpace(identifier),
		Name:       strings.TrimSpace(name),
		CreatedAt:  time.Now(),
	}
}

// Validate returns an error if the project is invalid
func (p *Project) Validate() error {
	if p.Identifier == "" {
		return errors.New("project identifier is required")
	}
	if strings.ContainsAny(p.Identifier, " \t") {
		return errors.New("project identifier cannot contain spaces")
	}
	if p.Name == "" {
		return errors.New("project name is required")
	}
	return nil
}

type User struct {
	ID    int64
	Login string
	Name  string
}

// Validate returns an error if the user is invalid
func (u *User) Validate() error {
	if strings.TrimSpace(u.Login) == "" {
		return errors.New("user login is required")
	}
	return nil
}

type ContractCategory struct {
	ID   int64
	Name string
}
