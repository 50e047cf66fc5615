package provider

// CatalogRecord is one catalog entity as returned by the provider. The same
// envelope shape is used for products, categories and trademarks; fields not
// applicable to an entity kind are simply absent.
type CatalogRecord struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Code     string  `json:"code"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
	ImageURL string  `json:"imageUrl"`
	Type     string  `json:"type"`

	CategoryID  string `json:"categoryId"`
	ParentID    string `json:"parentId"`
	TrademarkID string `json:"trademarkId"`
}

// pageEnvelope is the provider's paged response wrapper.
type pageEnvelope struct {
	Total    int             `json:"total"`
	PageSize int             `json:"pageSize"`
	Data     []CatalogRecord `json:"data"`
	RemoveID []string        `json:"removeId"`
}

// CategoryNode is one node of the provider's category forest. The provider
// may return a flat list (parent pointers only, empty Children) or a nested
// tree; the resolver handles both.
type CategoryNode struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	ParentID string         `json:"parentId"`
	Children []CategoryNode `json:"children"`
}

// categoriesEnvelope is the response wrapper of the categories endpoint.
type categoriesEnvelope struct {
	Total int            `json:"total"`
	Data  []CategoryNode `json:"data"`
}
