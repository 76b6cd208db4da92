package query

import "context"

// Select resolves src and returns SELECT columns FROM it
func (r *Resolver) Select(ctx context.Context, src Source, schema string, columns ...string) (*SelectStatement, *Table, error) {
	t, err := r.Resolve(ctx, src, schema)
	if err != nil {
		return nil, nil, err
	}
	s, err := NewSelect(t, columns...)
	if err != nil {
		return nil, nil, err
	}
	return s, t, nil
}

// Insert resolves src and returns an empty INSERT into it
func (r *Resolver) Insert(ctx context.Context, src Source, schema string) (*InsertStatement, *Table, error) {
	t, err := r.Resolve(ctx, src, schema)
	if err != nil {
		return nil, nil, err
	}
	return NewInsert(t), t, nil
}

// Update resolves src and returns an empty UPDATE of it
func (r *Resolver) Update(ctx context.Context, src Source, schema string) (*UpdateStatement, *Table, error) {
	t, err := r.Resolve(ctx, src, schema)
	if err != nil {
		return nil, nil, err
	}
	return NewUpdate(t), t, nil
}

// Delete resolves src and returns DELETE FROM it
func (r *Resolver) Delete(ctx context.Context, src Source, schema string) (*DeleteStatement, *Table, error) {
	t, err := r.Resolve(ctx, src, schema)
	if err != nil {
		return nil, nil, err
	}
	return NewDelete(t), t, nil
}
