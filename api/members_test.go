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

package api

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCondition(t *testing.T) {
	cond, err := parseCondition(url.Values{
		"username": {"member1"},
		"ageGoe":   {" 0 "},
		"ageLoe":   {""},
	})
	require.NoError(t, err)
	require.NotNil(t, cond.Username)
	assert.Equal(t, "member1", *cond.Username)
	assert.Nil(t, cond.TeamName)
	require.NotNil(t, cond.AgeGoe)
	assert.Equal(t, 0, *cond.AgeGoe)
	assert.Nil(t, cond.AgeLoe)

	_, err = parseCondition(url.Values{"ageLoe": {"1.5"}})
	assert.EqualError(t, err, "ageLoe must be an integer")
}

func TestParsePage(t *testing.T) {
	page, err := parsePage(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, 0, page.GetPage())
	assert.Equal(t, 10, page.GetPageSize())

	page, err = parsePage(url.Values{"page": {"2"}, "size": {"5"}})
	require.NoError(t, err)
	assert.Equal(t, 10, page.GetOffset())

	_, err = parsePage(url.Values{"page": {"first"}})
	assert.Error(t, err)
}
