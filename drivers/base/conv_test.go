package base

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoosky/prisma-engine/connector"
	"github.com/zoosky/prisma-engine/datamodel"
)

func TestDecodeValue(t *testing.T) {
	when := time.Date(2019, 8, 1, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value any
		ident datamodel.TypeIdentifier
		want  any
	}{
		{"nil passes through", nil, datamodel.IdentString, nil},
		{"int64", int64(5), datamodel.IdentInt, int64(5)},
		{"int bytes", []byte("42"), datamodel.IdentInt, int64(42)},
		{"float", 1.5, datamodel.IdentFloat, 1.5},
		{"float bytes", []byte("0.25"), datamodel.IdentFloat, 0.25},
		{"bool", true, datamodel.IdentBoolean, true},
		{"bool int", int64(1), datamodel.IdentBoolean, true},
		{"bool bytes", []byte("0"), datamodel.IdentBoolean, false},
		{"string", "x", datamodel.IdentString, "x"},
		{"string bytes", []byte("x"), datamodel.IdentString, "x"},
		{"time", when, datamodel.IdentDateTime, when},
		{"time bytes", []byte("2019-08-01 12:30:00"), datamodel.IdentDateTime, when},
		{"id int", int64(9), datamodel.IdentGraphQLID, int64(9)},
		{"id string", "ck1", datamodel.IdentGraphQLID, "ck1"},
		{"id numeric bytes", []byte("9"), datamodel.IdentGraphQLID, int64(9)},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := DecodeValue(test.value, test.ident)
			require.NoError(t, err)
			assert.Equal(t, test.want, got)
		})
	}
}

func TestDecodeValue_ConversionErrors(t *testing.T) {
	tests := []struct {
		name  string
		value any
		ident datamodel.TypeIdentifier
	}{
		{"struct to int", struct{}{}, datamodel.IdentInt},
		{"garbage bool", "maybe", datamodel.IdentBoolean},
		{"garbage time", "not a time", datamodel.IdentDateTime},
		{"float id", 1.5, datamodel.IdentGraphQLID},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := DecodeValue(test.value, test.ident)
			require.Error(t, err)
		})
	}
}

func TestToRecordID(t *testing.T) {
	id, err := ToRecordID(7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	id, err = ToRecordID("abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", id)

	_, err = ToRecordID(3.2)
	var conv *connector.ConversionError
	assert.ErrorAs(t, err, &conv)
}
