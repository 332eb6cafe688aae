package model

import (
	"bytes"
	"encoding/json"
	"errors"
)

type ProductRefKind int

const (
	ProductRefEmpty ProductRefKind = iota
	ProductRefByID
	ProductRefInline
)

// CMSの商品参照。IDだけ、または展開済みドキュメントのどちらか。
type ProductRef struct {
	Kind   ProductRefKind
	ID     string
	Inline *ProductDocument
}

func RefByID(id string) ProductRef {
	if id == "" {
		return ProductRef{}
	}
	return ProductRef{Kind: ProductRefByID, ID: id}
}

func RefInline(doc ProductDocument) ProductRef {
	return ProductRef{Kind: ProductRefInline, ID: doc.DocumentID(), Inline: &doc}
}

func (r ProductRef) IsEmpty() bool {
	return r.Kind == ProductRefEmpty
}

// CMSドキュメントの商品フィールド（価格は通貨の主単位）
type ProductData struct {
	ID            string   `json:"id,omitempty"`
	Name          string   `json:"name,omitempty"`
	Description   string   `json:"description,omitempty"`
	Price         *float64 `json:"price,omitempty"`
	OriginalPrice *float64 `json:"originalPrice,omitempty"`
	Image         string   `json:"image,omitempty"`
	Badge         string   `json:"badge,omitempty"`
	Slug          string   `json:"slug,omitempty"`
	Rating        *float64 `json:"rating,omitempty"`
	Reviews       *int64   `json:"reviews,omitempty"`
}

// {id, data:{...}} 形式と、フラット形式の両方を受ける
type ProductDocument struct {
	ProductData
	Data *ProductData `json:"data,omitempty"`
}

// ラッパーのid → data.id の順
func (d ProductDocument) DocumentID() string {
	if d.ID != "" {
		return d.ID
	}
	if d.Data != nil {
		return d.Data.ID
	}
	return ""
}

var ErrInvalidProductRef = errors.New("invalid product reference")

// 参照ラッパー {id, model, value}
type refEnvelope struct {
	ID    string          `json:"id"`
	Model string          `json:"model"`
	Value json.RawMessage `json:"value"`
}

// 受け付ける形：
//
//	"p1"
//	{"id":"w","model":"product","value":"p1"}
//	{"id":"w","model":"product","value":{"id":"p1","data":{...}}}
//	{"id":"p1","data":{...}} / {"id":"p1","name":"...","price":10}
func (r *ProductRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*r = ProductRef{}
		return nil
	}

	switch b[0] {
	case '"':
		var id string
		if err := json.Unmarshal(b, &id); err != nil {
			return ErrInvalidProductRef
		}
		*r = RefByID(id)
		return nil
	case '{':
	default:
		return ErrInvalidProductRef
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return ErrInvalidProductRef
	}

	// 参照ラッパー
	if _, ok := fields["value"]; ok {
		var env refEnvelope
		if err := json.Unmarshal(b, &env); err != nil {
			return ErrInvalidProductRef
		}
		v := bytes.TrimSpace(env.Value)
		switch {
		case len(v) > 0 && v[0] == '"':
			var id string
			if err := json.Unmarshal(v, &id); err != nil {
				return ErrInvalidProductRef
			}
			*r = RefByID(id)
		case len(v) > 0 && v[0] == '{':
			var doc ProductDocument
			if err := json.Unmarshal(v, &doc); err != nil {
				return ErrInvalidProductRef
			}
			*r = RefInline(doc)
		default:
			*r = RefByID(env.ID)
		}
		return nil
	}

	var doc ProductDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		return ErrInvalidProductRef
	}

	// idだけのオブジェクトはID参照として扱う
	if len(fields) == 1 && doc.ID != "" {
		*r = RefByID(doc.ID)
		return nil
	}
	*r = RefInline(doc)
	return nil
}

func (r ProductRef) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case ProductRefByID:
		return json.Marshal(r.ID)
	case ProductRefInline:
		return json.Marshal(r.Inline)
	default:
		return []byte("null"), nil
	}
}
