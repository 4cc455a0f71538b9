package settings

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSettings_ReadDotenv(t *testing.T) {
	t.Run("success - .env files is read into env variables", func(t *testing.T) {
		// arrange
		testDotEnvFile := ".env.test"
		f, err := os.Create(testDotEnvFile)
		if err != nil {
			t.Error(err)
		}
		lines := []string{
			`#COMMENTED=asdf`,
			`FERRITE_TEST=1234`,
			``,
			`FERRITE_TEST2= 2345 `,
		}
		for _, line := range lines {
			f.Write([]byte(line + "\n"))
		}
		f.Close()
		defer os.Remove(testDotEnvFile)

		// act
		ReadDotenv(testDotEnvFile)

		// assert
		assert.Equal(t, os.Getenv("FERRITE_TEST"), "1234")
		assert.Equal(t, os.Getenv("FERRITE_TEST2"), "2345")
	})
}

func TestSettings_SQLiteDbString(t *testing.T) {
	t.Run("success - readonly connection string", func(t *testing.T) {
		// arrange
		s := &AppSettings{SQLiteDatabase: "file:db.sqlite"}

		// act
		conn := s.SQLiteDbString(true)

		// assert
		assert.Contains(t, conn, "mode=ro")
		assert.Contains(t, conn, "_journal_mode=WAL")
	})
	t.Run("success - read-write connection string", func(t *testing.T) {
		// arrange
		s := &AppSettings{SQLiteDatabase: "file:db.sqlite"}

		// act
		conn := s.SQLiteDbString(false)

		// assert
		assert.Contains(t, conn, "mode=rwc")
		assert.Contains(t, conn, "_txlock=IMMEDIATE")
	})
}
