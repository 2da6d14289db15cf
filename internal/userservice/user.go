package userservice

import (
	"github.com/sushihentaime/blogshelf/internal/mediaservice"
)

func (u *User) IsAnonymous() bool {
	return u == &AnonymousUser
}

func (u *User) MediaRefs() []*mediaservice.Ref {
	if u == nil {
		return nil
	}
	return []*mediaservice.Ref{&u.Avatar}
}

// resolvables splits d into independent items so the enricher can sign them concurrently.
func (d *Details) resolvables() []mediaservice.Resolvable {
	items := make([]mediaservice.Resolvable, 0, 1+len(d.PostedBlogs)+len(d.SavedBlogs))
	items = append(items, d.User)
	for _, b := range d.PostedBlogs {
		items = append(items, b)
	}
	for _, b := range d.SavedBlogs {
		items = append(items, b)
	}
	return items
}
