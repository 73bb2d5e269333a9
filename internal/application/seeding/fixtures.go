package seeding

import (
	"github.com/grocery/backend/internal/domain/catalog"
	"github.com/grocery/backend/internal/domain/identity"
	"github.com/shopspring/decimal"
)

type accountFixture struct {
	Username  string
	Password  string
	Email     string
	FirstName string
	LastName  string
	Role      identity.Role
}

type contactFixture struct {
	Phone   string
	Address string
	City    string
	ZipCode string
	Country string
}

type customerFixture struct {
	Account accountFixture
	Contact contactFixture
}

type productFixture struct {
	Name     string
	Price    string
	Brand    string
	Category string
	Score    catalog.NutritionScore
	Quantity int
}

var adminAccount = accountFixture{
	Username:  "admin",
	Password:  "admin",
	Email:     "admin@trinity.com",
	FirstName: "Admin",
	LastName:  "User",
	Role:      identity.RoleAdmin,
}

var testCustomers = []customerFixture{
	{
		Account: accountFixture{Username: "john_doe", Password: "john123", Email: "john@example.com", FirstName: "John", LastName: "Doe", Role: identity.RoleCustomer},
		Contact: contactFixture{Phone: "+1 555-0101", Address: "123 Main Street", City: "New York", ZipCode: "10001", Country: "USA"},
	},
	{
		Account: accountFixture{Username: "jane_smith", Password: "jane123", Email: "jane@example.com", FirstName: "Jane", LastName: "Smith", Role: identity.RoleCustomer},
		Contact: contactFixture{Phone: "+1 555-0102", Address: "456 Oak Avenue", City: "Los Angeles", ZipCode: "90001", Country: "USA"},
	},
	{
		Account: accountFixture{Username: "bob_wilson", Password: "bob123", Email: "bob@example.com", FirstName: "Bob", LastName: "Wilson", Role: identity.RoleCustomer},
		Contact: contactFixture{Phone: "+1 555-0103", Address: "789 Pine Road", City: "Chicago", ZipCode: "60601", Country: "USA"},
	},
	{
		Account: accountFixture{Username: "alice_jones", Password: "alice123", Email: "alice@example.com", FirstName: "Alice", LastName: "Jones", Role: identity.RoleCustomer},
		Contact: contactFixture{Phone: "+1 555-0104", Address: "321 Elm Street", City: "Houston", ZipCode: "77001", Country: "USA"},
	},
}

var sampleProducts = []productFixture{
	{"Organic Apples", "3.99", "FreshFarm", "Fruits & Vegetables", catalog.NutritionScoreA, 50},
	{"Bananas", "2.49", "Tropical", "Fruits & Vegetables", catalog.NutritionScoreA, 100},
	{"Carrots (1kg)", "2.99", "FarmFresh", "Fruits & Vegetables", catalog.NutritionScoreA, 75},
	{"Whole Wheat Bread", "2.99", "BakerBest", "Grains & Cereals", catalog.NutritionScoreB, 45},
	{"Brown Rice (1kg)", "5.99", "GrainMill", "Grains & Cereals", catalog.NutritionScoreA, 60},
	{"Oatmeal", "4.49", "BreakfastBest", "Grains & Cereals", catalog.NutritionScoreA, 50},
	{"Chicken Breast (500g)", "7.99", "FreshPoultry", "Meat & Poultry", catalog.NutritionScoreA, 60},
	{"Ground Beef (500g)", "8.99", "PrimeBeef", "Meat & Poultry", catalog.NutritionScoreB, 50},
	{"Pork Chops", "9.99", "MeatMasters", "Meat & Poultry", catalog.NutritionScoreB, 30},
	{"Salmon Fillet", "15.99", "OceanFresh", "Fish & Seafood", catalog.NutritionScoreA, 25},
	{"Cod", "11.99", "SeaFish", "Fish & Seafood", catalog.NutritionScoreA, 20},
	{"Shrimp (500g)", "12.99", "OceanPrawn", "Fish & Seafood", catalog.NutritionScoreA, 30},
	{"Milk (1L)", "2.99", "DairyBest", "Dairy", catalog.NutritionScoreA, 80},
	{"Cheese (500g)", "5.99", "CheeseHouse", "Dairy", catalog.NutritionScoreB, 40},
	{"Yogurt (500g)", "3.49", "YogurtPro", "Dairy", catalog.NutritionScoreA, 60},
	{"Olive Oil (500ml)", "8.99", "OliveGold", "Fats & Oils", catalog.NutritionScoreA, 40},
	{"Sunflower Oil (1L)", "4.99", "SunOil", "Fats & Oils", catalog.NutritionScoreB, 50},
	{"Vegetable Oil (1L)", "3.99", "VegOil", "Fats & Oils", catalog.NutritionScoreB, 45},
	{"Honey (500ml)", "7.99", "PureHoney", "Sugars & Confectionery", catalog.NutritionScoreB, 35},
	{"Sugar (1kg)", "2.49", "SweetGrain", "Sugars & Confectionery", catalog.NutritionScoreE, 80},
	{"Chocolate Bar", "2.99", "ChocoBrand", "Sugars & Confectionery", catalog.NutritionScoreD, 100},
	{"Orange Juice (1L)", "3.99", "FreshJuice", "Beverages", catalog.NutritionScoreB, 50},
	{"Coffee (500g)", "7.99", "BeanBrew", "Beverages", catalog.NutritionScoreA, 30},
	{"Tea (20 bags)", "4.99", "TeaLeaf", "Beverages", catalog.NutritionScoreA, 40},
	{"Pizza (Frozen)", "8.99", "FrozenPizza", "Ready-to-eat", catalog.NutritionScoreC, 35},
	{"Prepared Salad", "6.99", "HealthySalad", "Ready-to-eat", catalog.NutritionScoreA, 25},
	{"Sandwich", "7.99", "QuickMeal", "Ready-to-eat", catalog.NutritionScoreB, 20},
	{"Tomato Sauce (500ml)", "2.99", "SaucePerfect", "Condiments/Sauces/Spices", catalog.NutritionScoreB, 50},
	{"Soy Sauce (250ml)", "3.49", "AsianFlavor", "Condiments/Sauces/Spices", catalog.NutritionScoreA, 40},
	{"Ketchup (500ml)", "2.49", "TomatoKetchup", "Condiments/Sauces/Spices", catalog.NutritionScoreD, 60},
}

type categorySearch struct {
	Category string
	Term     string
}

// realProductSearches yields one product per search
var realProductSearches = []categorySearch{
	{"Fruits & Vegetables", "apple"},
	{"Fruits & Vegetables", "banana"},
	{"Fruits & Vegetables", "carrot"},
	{"Grains & Cereals", "bread"},
	{"Grains & Cereals", "rice"},
	{"Grains & Cereals", "oats"},
	{"Meat & Poultry", "chicken"},
	{"Meat & Poultry", "beef"},
	{"Meat & Poultry", "pork"},
	{"Fish & Seafood", "salmon"},
	{"Fish & Seafood", "tuna"},
	{"Fish & Seafood", "cod"},
	{"Dairy", "milk"},
	{"Dairy", "cheese"},
	{"Dairy", "yogurt"},
	{"Fats & Oils", "olive oil"},
	{"Fats & Oils", "sunflower oil"},
	{"Fats & Oils", "coconut oil"},
	{"Sugars & Confectionery", "honey"},
	{"Sugars & Confectionery", "chocolate"},
	{"Sugars & Confectionery", "sugar"},
	{"Beverages", "orange juice"},
	{"Beverages", "coffee"},
	{"Beverages", "tea"},
	{"Ready-to-eat", "pizza"},
	{"Ready-to-eat", "sandwich"},
	{"Ready-to-eat", "salad"},
	{"Condiments/Sauces/Spices", "tomato sauce"},
	{"Condiments/Sauces/Spices", "soy sauce"},
	{"Condiments/Sauces/Spices", "ketchup"},
}

type categoryTerms struct {
	Category string
	Terms    []string
}

var importSearches = []categoryTerms{
	{"Fruits & Vegetables", []string{"apple", "banana", "carrot", "tomato", "lettuce", "orange"}},
	{"Grains & Cereals", []string{"bread", "rice", "oatmeal", "pasta", "cereal", "wheat"}},
	{"Meat & Poultry", []string{"chicken", "beef", "pork", "turkey", "lamb"}},
	{"Fish & Seafood", []string{"salmon", "tuna", "cod", "shrimp", "mackerel"}},
	{"Dairy", []string{"milk", "cheese", "yogurt", "butter", "cream"}},
	{"Fats & Oils", []string{"olive oil", "sunflower oil", "coconut oil", "vegetable oil"}},
	{"Sugars & Confectionery", []string{"honey", "chocolate", "sugar", "candy", "jam"}},
	{"Beverages", []string{"orange juice", "coffee", "tea", "water", "apple juice"}},
	{"Ready-to-eat", []string{"pizza", "sandwich", "salad", "burger", "soup"}},
	{"Condiments/Sauces/Spices", []string{"tomato sauce", "soy sauce", "salt", "pepper", "mustard"}},
}

var categoryPrices = map[string]decimal.Decimal{
	"Fruits & Vegetables":      decimal.RequireFromString("2.99"),
	"Grains & Cereals":         decimal.RequireFromString("4.99"),
	"Meat & Poultry":           decimal.RequireFromString("8.99"),
	"Fish & Seafood":           decimal.RequireFromString("12.99"),
	"Dairy":                    decimal.RequireFromString("3.99"),
	"Fats & Oils":              decimal.RequireFromString("6.99"),
	"Sugars & Confectionery":   decimal.RequireFromString("3.49"),
	"Beverages":                decimal.RequireFromString("4.49"),
	"Ready-to-eat":             decimal.RequireFromString("7.99"),
	"Condiments/Sauces/Spices": decimal.RequireFromString("2.99"),
}

var defaultCategoryPrice = decimal.RequireFromString("5.99")

func categoryPrice(category string) decimal.Decimal {
	if price, ok := categoryPrices[category]; ok {
		return price
	}
	return defaultCategoryPrice
}
