package odooapi

// command builds the x2many write triplets of the ORM.
type command struct{}

func (c *command) Create(values map[string]any) []any {
	return []any{0, 0, values}
}
func (c *command) Update(id int, values map[string]any) []any {
	return []any{1, id, values}
}
func (c *command) Delete(id int) []any {
	return []any{2, id, 0}
}
func (c *command) Unlink(id int) []any {
	return []any{3, id, 0}
}
func (c *command) Link(id int) []any {
	return []any{4, id, 0}
}
func (c *command) Clear() []any {
	return []any{5, 0, 0}
}
func (c *command) Set(ids []int) []any {
	return []any{6, 0, ids}
}

var Command command
