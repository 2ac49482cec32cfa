package billing

import (
	"encoding/json"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/communal/backend/internal/domain/shared"
)

func TestNewPeriod(t *testing.T) {
	p, err := NewPeriod(2024, 9)
	require.NoError(t, err)
	assert.Equal(t, "2024-09", p.String())

	for _, tc := range []struct{ year, month int }{{2024, 0}, {2024, 13}, {0, 5}, {10000, 1}} {
		_, err := NewPeriod(tc.year, tc.month)
		assert.True(t, shared.IsInvalidInput(err), "year=%d month=%d", tc.year, tc.month)
	}
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("2023-12")
	require.NoError(t, err)
	assert.Equal(t, Period{Year: 2023, Month: 12}, p)

	for _, s := range []string{"", "2023-1", "23-01", "2023/01", "abcd-01", "2023-ab", "2023-13"} {
		_, err := ParsePeriod(s)
		assert.Error(t, err, s)
	}
}

func TestPeriod_Previous(t *testing.T) {
	assert.Equal(t, "2024-08", MustPeriod(2024, 9).Previous().String())
	assert.Equal(t, "2023-12", MustPeriod(2024, 1).Previous().String())
	assert.Equal(t, "2025-01", MustPeriod(2024, 12).Next().String())
}

func TestPeriod_StepBack(t *testing.T) {
	p := MustPeriod(2024, 2)

	assert.Equal(t, p, p.StepBack(0))
	assert.Equal(t, "2023-11", p.StepBack(3).String())
	assert.Equal(t, "2022-02", p.StepBack(24).String())
}

func TestPeriod_CompareMatchesKeyOrder(t *testing.T) {
	periods := []Period{
		MustPeriod(2024, 10), MustPeriod(2023, 12), MustPeriod(2024, 2), MustPeriod(999, 1),
	}
	keys := make([]string, len(periods))
	for i, p := range periods {
		keys[i] = p.String()
	}

	sort.Slice(periods, func(i, j int) bool { return periods[i].Before(periods[j]) })
	sort.Strings(keys)

	for i := range periods {
		assert.Equal(t, keys[i], periods[i].String())
	}
	assert.Equal(t, 0, MustPeriod(2024, 1).Compare(MustPeriod(2024, 1)))
	assert.True(t, MustPeriod(2024, 2).After(MustPeriod(2024, 1)))
}

func TestPeriod_FirstDay(t *testing.T) {
	d := MustPeriod(2024, 9).FirstDay()
	assert.Equal(t, "2024-09-01", d.Format(BillDateLayout))
	assert.Equal(t, MustPeriod(2024, 9), PeriodOf(d))
}

func TestReadings_JSONUsesPeriodKeys(t *testing.T) {
	r := Readings{MustPeriod(2024, 8): dec("20"), MustPeriod(2024, 9): dec("35.5")}

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"2024-08":"20","2024-09":"35.5"}`, string(data))

	var back Readings
	require.NoError(t, json.Unmarshal([]byte(`{"2024-08":20,"2024-09":35.5}`), &back))
	assert.True(t, back[MustPeriod(2024, 9)].Equal(dec("35.5")))
}
