package utils

import (
	"math/rand"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

var lettersNumbers = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")

func randomCode(n int, keys []rune) string {
	random := rand.New(rand.NewSource(time.Now().UnixNano()))

	keySizes := len(keys)
	b := make([]rune, n)

	for i := range b {
		b[i] = keys[random.Intn(keySizes)]
	}
	return string(b)
}

func GenerateRandomKey(n int) string {
	return randomCode(n, lettersNumbers)
}

// GenerateRandomKeyWithNanoid 生成随机密钥，nanoid失败时回退到math/rand
func GenerateRandomKeyWithNanoid(n int) string {
	code, err := gonanoid.New(n)
	if err != nil {
		code = GenerateRandomKey(n)
	}
	return code
}
