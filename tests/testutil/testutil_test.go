package testutil

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMockDB(t *testing.T) {
	mockDB := NewMockDB(t)
	defer mockDB.Close()

	assert.NotNil(t, mockDB.DB)
	assert.NotNil(t, mockDB.Mock)
	assert.NotNil(t, mockDB.SqlDB)
}

func TestMockDB_ExpectationsWereMet(t *testing.T) {
	mockDB := NewMockDB(t)
	defer mockDB.Close()

	// No expectations set, should pass
	mockDB.ExpectationsWereMet(t)
}

func TestNewTestContext(t *testing.T) {
	tc := NewTestContext(t)

	assert.NotNil(t, tc.Context)
	assert.NotNil(t, tc.Recorder)
	assert.NotNil(t, tc.Engine)
	assert.Equal(t, http.MethodGet, tc.Context.Request.Method)
}

func TestTestContext_SetRequestID(t *testing.T) {
	tc := NewTestContext(t)

	tc.SetRequestID("req-123")

	val, exists := tc.Context.Get("request_id")
	assert.True(t, exists)
	assert.Equal(t, "req-123", val)
}

func TestTestContext_SetHeader(t *testing.T) {
	tc := NewTestContext(t)

	tc.SetHeader("X-Request-ID", "abc")

	assert.Equal(t, "abc", tc.Context.Request.Header.Get("X-Request-ID"))
}

func TestTestContext_ResponseCode(t *testing.T) {
	tc := NewTestContext(t)
	tc.Recorder.WriteHeader(http.StatusCreated)

	assert.Equal(t, http.StatusCreated, tc.ResponseCode())
}

func TestContextWithTimeout(t *testing.T) {
	ctx, cancel := ContextWithTimeout(t, 100*time.Millisecond)
	defer cancel()

	require.NotNil(t, ctx)

	// Context should have deadline
	deadline, ok := ctx.Deadline()
	assert.True(t, ok)
	assert.True(t, deadline.After(time.Now()))
}

func TestContextWithCancel(t *testing.T) {
	ctx, cancel := ContextWithCancel(t)

	select {
	case <-ctx.Done():
		t.Fatal("Context should not be cancelled yet")
	default:
		// Expected
	}

	cancel()

	select {
	case <-ctx.Done():
		// Expected
	default:
		t.Fatal("Context should be cancelled")
	}
}

func TestAssertEventually(t *testing.T) {
	counter := 0
	go func() {
		time.Sleep(50 * time.Millisecond)
		counter = 1
	}()

	AssertEventually(t, func() bool {
		return counter == 1
	}, 200*time.Millisecond, 10*time.Millisecond)
}

func TestAssertNever(t *testing.T) {
	value := false

	AssertNever(t, func() bool {
		return value
	}, 50*time.Millisecond, 10*time.Millisecond)
}

func TestRunHTTPTestCase(t *testing.T) {
	handler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "hello",
		})
	}

	tc := HTTPTestCase{
		Name:           "simple test",
		Method:         http.MethodGet,
		Path:           "/test",
		ExpectedStatus: http.StatusOK,
		ExpectedBody: map[string]any{
			"success": true,
		},
	}

	RunHTTPTestCase(t, handler, tc)
}

func TestRunHTTPTestCases(t *testing.T) {
	handler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	}

	cases := []HTTPTestCase{
		{
			Name:           "case 1",
			ExpectedStatus: http.StatusOK,
		},
		{
			Name:           "case 2",
			ExpectedStatus: http.StatusOK,
		},
	}

	RunHTTPTestCases(t, handler, cases)
}

func TestJSONResponse(t *testing.T) {
	tc := NewTestContext(t)
	tc.Context.JSON(http.StatusOK, gin.H{"key": "value"})

	resp := JSONResponse(t, tc)
	assert.Equal(t, "value", resp["key"])
}

func TestJSONResponseAs(t *testing.T) {
	type Response struct {
		Key string `json:"key"`
	}

	tc := NewTestContext(t)
	tc.Context.JSON(http.StatusOK, gin.H{"key": "value"})

	resp := JSONResponseAs[Response](t, tc)
	assert.Equal(t, "value", resp.Key)
}

func TestAssertSuccessResponse(t *testing.T) {
	tc := NewTestContext(t)
	tc.Context.JSON(http.StatusOK, gin.H{"success": true})

	AssertSuccessResponse(t, tc)
}

func TestToJSONReader(t *testing.T) {
	data := map[string]string{"key": "value"}
	reader := ToJSONReader(t, data)

	require.NotNil(t, reader)
}

func TestServeAndDecodeEnvelope(t *testing.T) {
	engine := gin.New()
	engine.POST("/echo", func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": gin.H{"code": "ERR_INVALID_JSON"}})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": body})
	})

	w := Serve(t, engine, http.MethodPost, "/echo", map[string]int{"n": 3})
	require.Equal(t, http.StatusOK, w.Code)
	var data map[string]int
	env := DecodeEnvelope(t, w, &data)
	assert.True(t, env.Success)
	assert.Equal(t, 3, data["n"])

	w = Serve(t, engine, http.MethodPost, "/echo", "{not json")
	env = DecodeEnvelope(t, w, nil)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "ERR_INVALID_JSON", env.Error.Code)
}
