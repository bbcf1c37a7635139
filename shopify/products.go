package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"goldflow/logger"
	"goldflow/models"
)

const productsQuery = `
query($pageSize: Int!, $cursor: String, $query: String) {
  products(first: $pageSize, after: $cursor, query: $query) {
    pageInfo { hasNextPage endCursor }
    edges {
      node {
        id
        handle
        title
        productType
        metafields(first: 50) {
          edges { node { namespace key value } }
        }
        variants(first: 100) {
          edges {
            node {
              id
              title
              sku
              price
              compareAtPrice
              metafields(first: 50) {
                edges { node { namespace key value } }
              }
            }
          }
        }
      }
    }
  }
}`

type metafieldNode struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Value     string `json:"value"`
}

type metafieldConnection struct {
	Edges []struct {
		Node metafieldNode `json:"node"`
	} `json:"edges"`
}

type variantNode struct {
	ID             string              `json:"id"`
	Title          string              `json:"title"`
	SKU            string              `json:"sku"`
	Price          string              `json:"price"`
	CompareAtPrice string              `json:"compareAtPrice"`
	Metafields     metafieldConnection `json:"metafields"`
}

type productNode struct {
	ID          string              `json:"id"`
	Handle      string              `json:"handle"`
	Title       string              `json:"title"`
	ProductType string              `json:"productType"`
	Metafields  metafieldConnection `json:"metafields"`
	Variants    struct {
		Edges []struct {
			Node variantNode `json:"node"`
		} `json:"edges"`
	} `json:"variants"`
}

type productsPage struct {
	Products struct {
		PageInfo struct {
			HasNextPage bool   `json:"hasNextPage"`
			EndCursor   string `json:"endCursor"`
		} `json:"pageInfo"`
		Edges []struct {
			Node productNode `json:"node"`
		} `json:"edges"`
	} `json:"products"`
}

// GetAllProducts pages through the catalog and returns every product with its
// variants and metafields. A non-empty handle list narrows the server side
// query instead of filtering client side, which matters on large catalogs.
func (c *Client) GetAllProducts(ctx context.Context, handles []string) ([]models.Product, error) {
	log := c.log.WithComponent("shopify_client").WithFields(logger.Fields{"operation": "get_all_products"})

	var handleQuery any
	if len(handles) > 0 {
		terms := make([]string, 0, len(handles))
		for _, h := range handles {
			terms = append(terms, fmt.Sprintf("handle:%s", h))
		}
		handleQuery = strings.Join(terms, " OR ")
	}

	var products []models.Product
	var cursor any
	for {
		data, err := c.graphql(ctx, productsQuery, map[string]any{
			"pageSize": c.pageSize,
			"cursor":   cursor,
			"query":    handleQuery,
		})
		if err != nil {
			return nil, fmt.Errorf("fetch products page: %w", err)
		}

		var page productsPage
		if err := json.Unmarshal(data, &page); err != nil {
			return nil, fmt.Errorf("decode products page: %w", err)
		}

		for _, edge := range page.Products.Edges {
			products = append(products, flattenProduct(edge.Node))
		}
		logger.IncrementCatalogPage(len(data))
		log.WithFields(logger.Fields{
			"page_products": len(page.Products.Edges),
			"total":         len(products),
		}).Debug("fetched products page")

		if !page.Products.PageInfo.HasNextPage {
			break
		}
		cursor = page.Products.PageInfo.EndCursor
	}

	log.WithFields(logger.Fields{"products": len(products)}).Info("catalog fetched")
	logger.LogDataFlowEntry(log, "shopify_api", "repricer", len(products), "products")
	return products, nil
}

func flattenProduct(node productNode) models.Product {
	product := models.Product{
		ID:          node.ID,
		Handle:      node.Handle,
		Title:       node.Title,
		ProductType: node.ProductType,
		Metafields:  flattenMetafields(node.Metafields),
	}
	for _, edge := range node.Variants.Edges {
		v := edge.Node
		product.Variants = append(product.Variants, models.Variant{
			ID:             v.ID,
			Title:          v.Title,
			SKU:            v.SKU,
			Price:          v.Price,
			CompareAtPrice: v.CompareAtPrice,
			Metafields:     flattenMetafields(v.Metafields),
		})
	}
	return product
}

func flattenMetafields(conn metafieldConnection) models.Metafields {
	if len(conn.Edges) == 0 {
		return models.Metafields{}
	}
	fields := make(models.Metafields, len(conn.Edges))
	for _, edge := range conn.Edges {
		fields[edge.Node.Namespace+"."+edge.Node.Key] = edge.Node.Value
	}
	return fields
}
