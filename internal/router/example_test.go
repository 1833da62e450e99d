package router

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

func ExampleRouter_GetPing() {
	server, _, _ := setupTestRouter(nil)
	defer server.Close()

	resp, err := http.Get(server.URL + "/ping")
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	fmt.Println("Status Code:", resp.StatusCode)

	// Output:
	// Status Code: 200
}

func ExampleRouter_GetApiv1users() {
	server, _, _ := setupTestRouter(nil, withCollection(`[{"id":1,"name":"Leanne Graham"}]`))
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/v1/users")
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		panic(err)
	}

	fmt.Println("Status Code:", resp.StatusCode)
	fmt.Println(string(body))

	// Output:
	// Status Code: 200
	// [{"id":1,"name":"Leanne Graham"}]
}

func ExampleRouter_PostApiv1users() {
	server, _, _ := setupTestRouter(nil, withCollection(`[{"id":1},{"id":2}]`))
	defer server.Close()

	resp, err := http.Post(server.URL+"/api/v1/users", "application/json", strings.NewReader(`{"name":"Ann"}`))
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		panic(err)
	}

	fmt.Println("Status Code:", resp.StatusCode)
	fmt.Println(string(body))

	// Output:
	// Status Code: 200
	// {"status":"success","id":3}
}

func ExampleRouter_PatchApiv1usersUserid() {
	server, _, _ := setupTestRouter(nil)
	defer server.Close()

	req, err := http.NewRequest(http.MethodPatch, server.URL+"/api/v1/users/5", strings.NewReader(`{"name":"Bob"}`))
	if err != nil {
		panic(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		panic(err)
	}

	fmt.Println("Status Code:", resp.StatusCode)
	fmt.Println(string(body))

	// Output:
	// Status Code: 200
	// {"status":"No file","id":5}
}

func ExampleRouter_DeleteApiv1users() {
	server, _, _ := setupTestRouter(nil, withCollection(`[]`))
	defer server.Close()

	for i := 0; i < 2; i++ {
		req, err := http.NewRequest(http.MethodDelete, server.URL+"/api/v1/users", nil)
		if err != nil {
			panic(err)
		}

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			panic(err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			panic(err)
		}

		fmt.Println(string(body))
	}

	// Output:
	// {"status":"file was deleted"}
	// {"status":"no file"}
}
