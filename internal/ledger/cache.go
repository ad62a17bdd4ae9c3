package ledger

// Source exposes the authoritative lists a Cache is rebuilt from. Payees
// includes payees created locally but not yet pushed.
type Source interface {
	Accounts() []Account
	Payees() []Payee
	Categories() []Category
}

// Cache mirrors ledger accounts and payees for lookups by exact name.
// It is not safe for concurrent use.
type Cache struct {
	accounts   map[string]Account
	payees     map[string]Payee
	categories map[string]Category
}

// NewCache returns an empty cache
func NewCache() *Cache {
	return &Cache{
		accounts:   make(map[string]Account),
		payees:     make(map[string]Payee),
		categories: make(map[string]Category),
	}
}

// Rebuild replaces every mapping with the contents of src
func (c *Cache) Rebuild(src Source) {
	accounts := make(map[string]Account)
	for _, a := range src.Accounts() {
		accounts[a.Name] = a
	}
	categories := make(map[string]Category)
	for _, cat := range src.Categories() {
		categories[cat.ID] = cat
	}

	c.accounts = accounts
	c.categories = categories
	c.RebuildPayees(src)
}

// RebuildPayees replaces the payee mapping only
func (c *Cache) RebuildPayees(src Source) {
	payees := make(map[string]Payee)
	for _, p := range src.Payees() {
		payees[p.Name] = p
	}
	c.payees = payees
}

// Account looks up an account by name
func (c *Cache) Account(name string) (Account, bool) {
	a, ok := c.accounts[name]
	return a, ok
}

// Payee looks up a payee by name
func (c *Cache) Payee(name string) (Payee, bool) {
	p, ok := c.payees[name]
	return p, ok
}

// Category looks up a category by id
func (c *Cache) Category(id string) (Category, bool) {
	cat, ok := c.categories[id]
	return cat, ok
}

// Len returns the number of cached accounts and payees
func (c *Cache) Len() (accounts, payees int) {
	return len(c.accounts), len(c.payees)
}
