// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

// Well-known category names.
const (
	CategoryGeneral = "general"
	CategoryMaster  = "master"
	CategoryFree    = "free"
	CategoryInfo    = "info"
)

// protectedCategories can never be removed from the registry.
var protectedCategories = map[string]bool{
	CategoryGeneral: true,
	CategoryMaster:  true,
	CategoryFree:    true,
	CategoryInfo:    true,
}

// Category is one board in the sidebar. Name is the unique key and the
// value stored on posts; Path is where the board is served.
type Category struct {
	Name  string `json:"name" yaml:"name"`
	Label string `json:"label" yaml:"label"`
	Path  string `json:"path" yaml:"path"`
}

// IsProtectedCategory reports whether name belongs to the fixed set of
// boards that cannot be removed.
func IsProtectedCategory(name string) bool {
	return protectedCategories[name]
}

// CategoryPath returns the board URL for a category name.
func CategoryPath(name string) string {
	if name == CategoryGeneral {
		return "/home/general"
	}
	return "/home/category/" + name
}
