/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnd(t *testing.T) {
	a := NewQueryFilter("m.age >= ?", 10)
	b := NewQueryFilter("m.age <= ?", 20)

	t.Run("none", func(t *testing.T) {
		assert.Nil(t, And())
		assert.Nil(t, And(nil, nil))
		assert.Nil(t, And(NewQueryFilter("  ")))
	})

	t.Run("single operand is copied", func(t *testing.T) {
		got := And(nil, a)
		require.NotNil(t, got)
		assert.Equal(t, "m.age >= ?", got.Schema)
		assert.Equal(t, []interface{}{10}, got.Args)
		got.Args[0] = 99
		assert.Equal(t, 10, a.Args[0])
	})

	t.Run("conjunction keeps operand order", func(t *testing.T) {
		got := And(a, nil, b)
		require.NotNil(t, got)
		assert.Equal(t, "(m.age >= ?) AND (m.age <= ?)", got.Schema)
		assert.Equal(t, []interface{}{10, 20}, got.Args)
	})

	t.Run("method form", func(t *testing.T) {
		var empty *QueryFilter
		assert.True(t, empty.IsEmpty())
		assert.Equal(t, a.Schema, empty.And(a).Schema)
		assert.Equal(t, "(m.age >= ?) AND (m.age <= ?)", a.And(b).Schema)
	})
}

func TestPageRequest(t *testing.T) {
	cases := []struct {
		name       string
		page, size int
		wantPage   int
		wantSize   int
		wantOffset int
	}{
		{"first page", 0, 3, 0, 3, 0},
		{"second page", 1, 3, 1, 3, 3},
		{"negative page", -2, 5, 0, 5, 0},
		{"default size", 2, 0, 2, 10, 20},
		{"largest exact offset", math.MaxInt / 100, 100, math.MaxInt / 100, 100, math.MaxInt / 100 * 100},
		{"offset saturates", math.MaxInt/100 + 1, 100, math.MaxInt/100 + 1, 100, math.MaxInt},
		{"max page", math.MaxInt, 2, math.MaxInt, 2, math.MaxInt},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewDefaultPageRequest(tc.page, tc.size)
			assert.Equal(t, tc.wantPage, p.GetPage())
			assert.Equal(t, tc.wantSize, p.GetPageSize())
			assert.Equal(t, tc.wantOffset, p.GetOffset())
		})
	}
}

func TestPagination(t *testing.T) {
	p := NewDefaultPagination[int](0, 3)
	assert.Equal(t, 0, p.TotalPages())
	assert.False(t, p.HasNext())

	p.Total = 4
	assert.Equal(t, 2, p.TotalPages())
	assert.True(t, p.HasNext())

	p.Page = 1
	assert.False(t, p.HasNext())

	one, two := 1, 2
	p.Items = []*int{&one, &two}
	mapped := Map(p, func(v *int) *string {
		s := string(rune('a' + *v))
		return &s
	})
	assert.Equal(t, 4, mapped.Total)
	assert.Equal(t, 1, mapped.Page)
	require.Len(t, mapped.Items, 2)
	assert.Equal(t, "b", *mapped.Items[0])
}

func TestOptional(t *testing.T) {
	empty := Empty[int]()
	assert.False(t, empty.IsPresent())
	_, ok := empty.Get()
	assert.False(t, ok)
	def := 7
	assert.Equal(t, &def, empty.OrElse(&def))
	assert.Panics(t, func() { empty.MustGet() })

	v := 3
	full := Of(&v)
	assert.True(t, full.IsPresent())
	got, ok := full.Get()
	assert.True(t, ok)
	assert.Equal(t, 3, *got)
	assert.Equal(t, 3, *full.MustGet())

	assert.False(t, Of[int](nil).IsPresent())
}
