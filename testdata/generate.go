package main

import (
	"log"
	"os"

	"github.com/parquet-go/parquet-go"
)

type Person struct {
	Name   string  `parquet:"name"`
	Age    int64   `parquet:"age"`
	City   string  `parquet:"city"`
	Income float64 `parquet:"income"`
}

func main() {
	people := []Person{
		{Name: "Alice", Age: 34, City: "Berlin", Income: 52000.0},
		{Name: "Bob", Age: 28, City: "Paris", Income: 41000.5},
		{Name: "Carol", Age: 45, City: "Berlin", Income: 61250.75},
		{Name: "Dave", Age: 23, City: "Madrid", Income: 33800.0},
		{Name: "Erin", Age: 39, City: "Paris", Income: 57400.25},
	}

	file, err := os.Create("people.parquet")
	if err != nil {
		log.Fatal(err)
	}
	defer file.Close()

	writer := parquet.NewGenericWriter[Person](file)
	defer writer.Close()

	if _, err := writer.Write(people); err != nil {
		log.Fatal(err)
	}

	log.Println("Generated people.parquet with 5 people")
}
