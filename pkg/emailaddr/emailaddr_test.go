// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package emailaddr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/feedbackhub/pkg/emailaddr"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "ann@x.com", emailaddr.Normalize("  Ann@X.COM "))
	assert.Equal(t, "ann@x.com", emailaddr.Normalize("ann@x.com"))
	assert.Equal(t, emailaddr.Normalize("STRASSE@x.de"), emailaddr.Normalize("strasse@X.de"))
}
