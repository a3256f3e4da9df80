// Package restrict implements the directory allow-list that scopes every
// filesystem operation.
//
// A Restrictions value holds a label and a set of entries. Each entry is an
// absolute directory, stored with a trailing slash, plus a write flag. A path
// P is covered by entry D when P+"/" starts with D, so "/srv/www" covers
// "/srv/www" and "/srv/www/a" but not "/srv/wwwdata". Write access needs an
// entry with the write flag set.
//
// Values are immutable. Parent, Child, Writable, ReadOnly and With all return
// new instances:
//
//	r := restrict.New("uploads", false, "/srv/www")
//	w := r.Child([]string{"uploads"}, restrict.Writable)
//	err := w.Check(true, "/srv/www/uploads/a.png") // nil
//	err = r.Check(true, "/srv/www/index.html")     // RESTRICTED
//
// Matching is lexical: "." and ".." are cleaned away before comparison, but
// symbolic links are not resolved. Callers that must not escape through a
// link check the resolved path as well.
package restrict
