package models

// Directory describes an external directory server accounts can be
// authenticated against. URL uses the ldap:// or ldaps:// scheme.
type Directory struct {
	ID           int64
	Name         string
	URL          string
	BindDN       string
	BindPassword string
	BaseDN       string
}
